package tabular

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// markerClasses are secondary classes that commonly flag row state in
// generated markup. A marker present on some members of an item group
// becomes a boolean column.
var markerClasses = map[string]bool{
	"done":        true,
	"completed":   true,
	"complete":    true,
	"checked":     true,
	"paid":        true,
	"selected":    true,
	"active":      true,
	"highlight":   true,
	"highlighted": true,
	"overdue":     true,
}

// structuralCandidates walks the parsed element tree and returns every
// exportable table it can read directly: literal <table> elements first,
// then repeated item-element groups, in document order within each pass.
// Traversal order is deterministic, so identical markup yields identical
// candidate IDs and payloads.
func structuralCandidates(markup string) []Candidate {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []Candidate
	for i, tbl := range collectTables(root) {
		if c, ok := tableCandidate(tbl, i); ok {
			out = append(out, c)
		}
	}
	for i, g := range collectItemGroups(root) {
		if c, ok := groupCandidate(g, i); ok {
			out = append(out, c)
		}
	}
	return out
}

func collectTables(root *html.Node) []*html.Node {
	var tables []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
			return false // nested tables read as part of the outer one
		}
		return true
	})
	return tables
}

// tableCandidate reads a literal <table> row by row. The first row is the
// header; data rows are padded or truncated to the header width.
func tableCandidate(tbl *html.Node, index int) (Candidate, bool) {
	var rows [][]string
	walk(tbl, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			walk(n, func(c *html.Node) bool {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, textContent(c))
					return false
				}
				return true
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return false
		}
		return true
	})
	if len(rows) < 2 {
		return Candidate{}, false
	}

	header := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		data = append(data, fitWidth(r, len(header)))
	}

	name := tableCaption(tbl)
	if name == "" {
		name = fmt.Sprintf("Table %d", index+1)
	}
	return Candidate{
		ID:          fmt.Sprintf("table-%d", index+1),
		Name:        name,
		Description: fmt.Sprintf("Table with columns: %s", strings.Join(header, ", ")),
		RowCount:    len(data),
		csv:         renderCSV(header, data),
	}, true
}

func tableCaption(tbl *html.Node) string {
	for c := tbl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "caption" {
			return textContent(c)
		}
	}
	return ""
}

// itemGroup is a run of sibling elements sharing a tag and primary class.
type itemGroup struct {
	tag   string
	class string
	items []*html.Node
}

// collectItemGroups finds repeated sibling elements with the same tag and
// primary class. Elements inside a <table> belong to the table pass and are
// skipped here.
func collectItemGroups(root *html.Node) []itemGroup {
	var groups []itemGroup
	walk(root, func(parent *html.Node) bool {
		if parent.Type == html.ElementNode && parent.Data == "table" {
			return false
		}
		byKey := make(map[string]*itemGroup)
		var order []string
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			cls := primaryClass(c)
			if cls == "" {
				continue
			}
			key := c.Data + "." + cls
			g, ok := byKey[key]
			if !ok {
				g = &itemGroup{tag: c.Data, class: cls}
				byKey[key] = g
				order = append(order, key)
			}
			g.items = append(g.items, c)
		}
		for _, key := range order {
			if g := byKey[key]; len(g.items) >= 2 {
				groups = append(groups, *g)
			}
		}
		return true
	})
	return groups
}

// groupCandidate turns a repeated item group into a table. Columns are the
// union of class-named descendant fields in first-seen order; a marker class
// present on any member adds a trailing boolean column.
func groupCandidate(g itemGroup, index int) (Candidate, bool) {
	var fields []string
	seen := make(map[string]bool)
	values := make([]map[string]string, len(g.items))
	marker := ""

	for i, item := range g.items {
		values[i] = itemFields(item)
		for _, f := range fieldOrder(item) {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
		if marker == "" {
			for _, cls := range classList(item)[1:] {
				if markerClasses[cls] {
					marker = cls
					break
				}
			}
		}
	}
	if len(fields) < 2 {
		return Candidate{}, false
	}

	header := append([]string{}, fields...)
	if marker != "" {
		header = append(header, marker)
	}
	data := make([][]string, 0, len(g.items))
	for i, item := range g.items {
		row := make([]string, 0, len(header))
		for _, f := range fields {
			row = append(row, values[i][f])
		}
		if marker != "" {
			row = append(row, fmt.Sprintf("%t", hasClass(item, marker)))
		}
		data = append(data, row)
	}

	return Candidate{
		ID:          fmt.Sprintf("items-%d-%s", index+1, g.class),
		Name:        g.class,
		Description: fmt.Sprintf("Repeated %q elements with columns: %s", g.class, strings.Join(header, ", ")),
		RowCount:    len(data),
		csv:         renderCSV(header, data),
	}, true
}

// itemFields maps class-named descendants of one item to their text. The
// first occurrence of a field name wins.
func itemFields(item *html.Node) map[string]string {
	out := make(map[string]string)
	for c := item.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			cls := primaryClass(n)
			if cls == "" {
				return true
			}
			if _, ok := out[cls]; !ok {
				out[cls] = textContent(n)
			}
			return false
		})
	}
	return out
}

// fieldOrder lists class-named descendant fields of one item in document
// order, deduplicated.
func fieldOrder(item *html.Node) []string {
	var order []string
	seen := make(map[string]bool)
	for c := item.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(n *html.Node) bool {
			cls := primaryClass(n)
			if cls == "" {
				return true
			}
			if !seen[cls] {
				seen[cls] = true
				order = append(order, cls)
			}
			return false
		})
	}
	return order
}

// walk runs fn on n and, when fn returns true, on its children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func classList(n *html.Node) []string {
	if n.Type != html.ElementNode {
		return nil
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Fields(a.Val)
		}
	}
	return nil
}

func primaryClass(n *html.Node) string {
	if cl := classList(n); len(cl) > 0 {
		return cl[0]
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classList(n) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent concatenates descendant text with whitespace collapsed.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func fitWidth(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
