package tabular

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/docviz-io/docviz/llm"
)

const identifyInstruction = `You are given the HTML of an interactive visualization. List every
table-like structure a user might want to export as CSV, including data
rendered as repeated cards, lists, or chart data arrays.

Respond with only a JSON object of the form:
{"tables": [{"id": "short-slug", "name": "Display Name",
"description": "one sentence", "row_count": 0}]}

If there is nothing exportable, respond with {"tables": []}.`

const extractInstruction = `You are given the HTML of an interactive visualization. Extract the
requested table as CSV.

Rules:
- Output only CSV text. No prose, no code fences.
- The first line is the header. Every data row has exactly as many fields
  as the header.
- Quote fields containing commas, quotes, or newlines; double any embedded
  quotes.
- Numbers with thousands separators lose the separators ($1,250.00 becomes
  $1250.00).
- Use only values present in the markup. Never invent data.`

// identifyFallback asks the model to enumerate exportable tables. Any
// failure, including unparseable output, degrades to an empty list.
func (e *Engine) identifyFallback(ctx context.Context, markup string) []Candidate {
	if e.provider == nil {
		return nil
	}
	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: identifyInstruction},
			{Role: "user", Content: markup},
		},
		Temperature:    0,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("tabular: identify fallback failed", "error", err)
		return nil
	}

	var wire struct {
		Tables []Candidate `json:"tables"`
	}
	raw := extractObject(resp.Content)
	if raw == "" {
		slog.Warn("tabular: identify fallback returned no JSON object")
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		slog.Warn("tabular: identify fallback output unreadable", "error", err)
		return nil
	}
	out := wire.Tables[:0]
	for _, c := range wire.Tables {
		if c.ID != "" || c.Name != "" {
			out = append(out, c)
		}
	}
	return out
}

// extractFallback asks the model to emit CSV for one named table. Any
// failure degrades to an absent payload.
func (e *Engine) extractFallback(ctx context.Context, markup, tableID, tableName string) (string, bool) {
	if e.provider == nil {
		return "", false
	}
	target := tableName
	if target == "" {
		target = tableID
	}
	resp, err := e.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: extractInstruction},
			{Role: "user", Content: "Table to extract: " + target + "\n\nMarkup:\n" + markup},
		},
		Temperature: 0,
	})
	if err != nil {
		slog.Warn("tabular: extract fallback failed", "table", target, "error", err)
		return "", false
	}
	csvText := stripFence(resp.Content)
	if csvText == "" {
		return "", false
	}
	return csvText, true
}

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
)

// stripFence removes a surrounding code fence, if present.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractObject pulls the first JSON object out of model output, tolerating
// code fences and surrounding prose.
func extractObject(s string) string {
	s = stripFence(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
