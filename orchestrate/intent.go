package orchestrate

import "strings"

// IntentClassifier decides whether an instruction needs the full source
// context rather than just the current markup. It is deliberately a narrow
// interface so the phrase matcher below can be swapped for something smarter
// without touching the orchestrator's mode selection.
type IntentClassifier interface {
	NeedsSourceContext(instruction string) bool
}

// sourceContextPhrases are instruction fragments that imply re-derivation
// from the source material: the current markup alone cannot satisfy them.
var sourceContextPhrases = []string{
	"regenerate",
	"reload",
	"re-load",
	"recreate",
	"re-create",
	"start over",
	"start again",
	"from scratch",
	"original document",
	"original data",
	"original file",
	"source data",
	"source document",
	"missing item",
	"missing row",
	"missing entr",
	"all the items",
	"all of the items",
	"everything from the",
}

// phraseIntent is the default IntentClassifier: case-insensitive substring
// matching over a fixed phrase list.
type phraseIntent struct{}

// NewPhraseIntent returns the default phrase-matching intent classifier.
func NewPhraseIntent() IntentClassifier {
	return phraseIntent{}
}

func (phraseIntent) NeedsSourceContext(instruction string) bool {
	lower := strings.ToLower(instruction)
	for _, p := range sourceContextPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
