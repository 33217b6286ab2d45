package orchestrate

import (
	"strings"

	"github.com/docviz-io/docviz/store"
)

// Assemble builds the single ordered context block for a NeedsContext turn.
// Order matters: everything before the current markup is framed as ground
// truth the model must not alter; the markup at the end is the mutable state
// it edits. Structured payload JSON is preferred over raw text when present
// because it is denser and unambiguous.
func Assemble(doc *store.Document, linked []*store.Document) string {
	var b strings.Builder

	b.WriteString("# Document: " + doc.DisplayName + "\n")
	b.WriteString("Category: " + doc.Category + "\n\n")

	b.WriteString("## Source content (ground truth — do not alter)\n\n")
	if len(doc.Structured) > 0 {
		b.WriteString("Structured extraction:\n")
		b.WriteString(string(doc.Structured))
		b.WriteString("\n")
	} else {
		b.WriteString(doc.ExtractedText)
		b.WriteString("\n")
	}

	for _, frag := range doc.Fragments {
		b.WriteString("\n## Attached source: " + frag.OriginName + "\n\n")
		b.WriteString(frag.Content)
		b.WriteString("\n")
	}

	for _, ext := range linked {
		if ext == nil {
			continue
		}
		b.WriteString("\n## Referenced document: " + ext.DisplayName + "\n\n")
		if len(ext.Structured) > 0 {
			b.WriteString(string(ext.Structured))
		} else {
			b.WriteString(ext.ExtractedText)
		}
		b.WriteString("\n")
	}

	if doc.Visualization != nil && *doc.Visualization != "" {
		b.WriteString("\n## Current visualization (mutable — edit this)\n\n")
		b.WriteString(*doc.Visualization)
		b.WriteString("\n")
	}

	return b.String()
}
