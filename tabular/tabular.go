// Package tabular recovers structured data from rendered visualization
// markup. A structural pass over the element tree is the validated source of
// truth; a generative-model fallback handles markup the heuristics cannot
// read. Failures degrade to an empty candidate list or an absent payload,
// never a hard error, so callers surface "nothing to export" at worst.
package tabular

import (
	"context"
	"strings"

	"github.com/docviz-io/docviz/llm"
)

// Candidate is a provisional exportable table surfaced for selection.
// IDs are deterministic for identical markup but not stable across markup
// changes; a cached payload is only trustworthy for the markup it came from.
type Candidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RowCount    int    `json:"row_count"`

	csv string // cached delimited payload; structural candidates only
}

// CSV returns the cached delimited payload, if this candidate has one.
func (c Candidate) CSV() (string, bool) {
	return c.csv, c.csv != ""
}

// Engine identifies and extracts tables from markup. The provider is only
// consulted when the structural pass finds nothing; it may be nil, in which
// case the fallback is skipped entirely.
type Engine struct {
	provider llm.Provider
}

// New creates a table extraction engine.
func New(provider llm.Provider) *Engine {
	return &Engine{provider: provider}
}

// Identify enumerates exportable tables in the markup. The structural pass
// wins whenever it yields at least one candidate; otherwise the model is
// asked to enumerate plausible tables. Either way the result may be empty.
func (e *Engine) Identify(ctx context.Context, markup string) []Candidate {
	if cands := structuralCandidates(markup); len(cands) > 0 {
		return cands
	}
	return e.identifyFallback(ctx, markup)
}

// Extract returns delimited text for the table matching tableID or
// tableName. A structural match reuses the cached payload and never touches
// the model; otherwise the model is asked to emit CSV for the named table.
// The second return is false when there is nothing to export.
func (e *Engine) Extract(ctx context.Context, markup, tableID, tableName string) (string, bool) {
	for _, c := range structuralCandidates(markup) {
		if matches(c, tableID, tableName) {
			return c.csv, true
		}
	}
	return e.extractFallback(ctx, markup, tableID, tableName)
}

func matches(c Candidate, tableID, tableName string) bool {
	if tableID != "" && c.ID == tableID {
		return true
	}
	return tableName != "" && strings.EqualFold(c.Name, tableName)
}
