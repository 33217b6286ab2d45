// Package orchestrate runs the conversation loop that turns user
// instructions into visualization updates. Each turn makes exactly one
// generative-model call; the response is parsed into either a conversational
// answer or a markup update, and the document record is persisted
// accordingly.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/docviz-io/docviz/llm"
	"github.com/docviz-io/docviz/store"
)

var (
	// ErrGenerationFailed is returned when the model call for a turn fails.
	// The apology transcript entry is persisted before this is returned.
	ErrGenerationFailed = errors.New("docviz: generation failed")

	// ErrCancelled is returned when an in-flight turn is cancelled. Distinct
	// from ErrGenerationFailed: the markup is guaranteed untouched and a
	// cancellation notice has been appended to the transcript.
	ErrCancelled = errors.New("docviz: turn cancelled")
)

// Mode is the per-turn context strategy. It is chosen fresh on every turn,
// never carried as orchestrator state.
type Mode int

const (
	// ModeNeedsContext sends the full assembled context block.
	ModeNeedsContext Mode = iota
	// ModeRefining sends only the current markup and the instruction.
	ModeRefining
)

func (m Mode) String() string {
	if m == ModeRefining {
		return "refining"
	}
	return "needs_context"
}

// DocumentStore is the slice of the store the orchestrator needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	SaveTurn(ctx context.Context, id string, markup *string, history []store.Turn) error
}

// TurnResult is the outcome of one successful conversation turn.
type TurnResult struct {
	Mode    Mode
	Message string
	// Markup is the new visualization, or nil on a question-only turn.
	Markup     *string
	Transcript []store.Turn
}

// Orchestrator drives conversation turns for documents. Concurrency control
// is the caller's job: at most one in-flight turn per document session.
type Orchestrator struct {
	provider llm.Provider
	docs     DocumentStore
	intent   IntentClassifier
}

// New creates an Orchestrator. A nil intent falls back to the built-in
// phrase matcher.
func New(provider llm.Provider, docs DocumentStore, intent IntentClassifier) *Orchestrator {
	if intent == nil {
		intent = NewPhraseIntent()
	}
	return &Orchestrator{provider: provider, docs: docs, intent: intent}
}

// SelectMode picks the context strategy for one turn. Refining requires
// existing markup, an existing transcript, and an instruction that does not
// demand re-grounding in source material.
func (o *Orchestrator) SelectMode(doc *store.Document, instruction string) Mode {
	hasMarkup := doc.Visualization != nil && *doc.Visualization != ""
	if hasMarkup && len(doc.ChatHistory) > 0 && !o.intent.NeedsSourceContext(instruction) {
		return ModeRefining
	}
	return ModeNeedsContext
}

// SendMessage runs one conversation turn: select mode, make the single model
// call, parse the dual-purpose response, persist markup and transcript
// together. linkedIDs name cross-referenced documents whose content joins
// the context block on NeedsContext turns.
func (o *Orchestrator) SendMessage(ctx context.Context, documentID, instruction string, linkedIDs []string) (*TurnResult, error) {
	doc, err := o.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	mode := o.SelectMode(doc, instruction)
	req := o.buildRequest(ctx, doc, instruction, mode, linkedIDs)

	slog.Info("orchestrate: turn starting",
		"doc_id", documentID, "mode", mode.String(), "instruction_len", len(instruction))
	start := time.Now()

	resp, err := o.provider.Chat(ctx, req)
	if err != nil {
		return nil, o.failTurn(ctx, doc, instruction, err)
	}

	parsed := ParseResponse(resp.Content)
	message := parsed.Message
	if message == "" && parsed.Kind == ResponseUpdate {
		message = "I've updated the visualization."
	}

	history := append(append([]store.Turn{}, doc.ChatHistory...),
		store.Turn{Role: "user", Text: instruction},
		store.Turn{Role: "assistant", Text: message},
	)

	var markup *string
	if parsed.Kind == ResponseUpdate {
		markup = &parsed.Markup
	}

	if err := o.docs.SaveTurn(ctx, documentID, markup, history); err != nil {
		return nil, fmt.Errorf("persisting turn: %w", err)
	}

	slog.Info("orchestrate: turn complete",
		"doc_id", documentID, "mode", mode.String(),
		"updated_markup", markup != nil,
		"tokens", resp.TotalTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &TurnResult{
		Mode:       mode,
		Message:    message,
		Markup:     markup,
		Transcript: history,
	}, nil
}

// buildRequest assembles the chat request for the selected mode.
func (o *Orchestrator) buildRequest(ctx context.Context, doc *store.Document, instruction string, mode Mode, linkedIDs []string) llm.ChatRequest {
	if mode == ModeRefining {
		user := "Current visualization:\n\n" + *doc.Visualization + "\n\nInstruction: " + instruction
		return llm.ChatRequest{
			Messages: []llm.Message{
				{Role: "system", Content: refineInstruction},
				{Role: "user", Content: user},
			},
			Temperature: 0,
		}
	}

	var linked []*store.Document
	for _, id := range linkedIDs {
		ext, err := o.docs.GetDocument(ctx, id)
		if err != nil {
			// A broken reference degrades to a smaller context block.
			slog.Warn("orchestrate: referenced document unavailable", "ref_id", id, "error", err)
			continue
		}
		linked = append(linked, ext)
	}

	contextBlock := Assemble(doc, linked)
	return llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: fullInstruction},
			{Role: "user", Content: contextBlock + "\nInstruction: " + instruction},
		},
		Temperature: 0,
		// The context block repeats across turns for the same document;
		// providers with prompt caching can reuse the prefix.
		PromptCacheKey: "docviz-ctx-" + doc.ID,
	}
}

// failTurn handles the two terminal outcomes of a failed model call. Both
// persist a transcript entry with the markup untouched; cancellation is its
// own outcome, never logged as an error. Persistence runs on a detached
// context so a cancelled turn can still record its notice.
func (o *Orchestrator) failTurn(ctx context.Context, doc *store.Document, instruction string, callErr error) error {
	cancelled := errors.Is(callErr, context.Canceled) ||
		errors.Is(callErr, context.DeadlineExceeded) ||
		ctx.Err() != nil

	notice := "Sorry — something went wrong while generating a response. Please try again."
	if cancelled {
		notice = "Generation was cancelled. The visualization was left unchanged."
	}

	history := append(append([]store.Turn{}, doc.ChatHistory...),
		store.Turn{Role: "user", Text: instruction},
		store.Turn{Role: "assistant", Text: notice},
	)

	persistCtx := context.WithoutCancel(ctx)
	if err := o.docs.SaveTurn(persistCtx, doc.ID, nil, history); err != nil {
		slog.Warn("orchestrate: persisting failure notice failed", "doc_id", doc.ID, "error", err)
	}

	if cancelled {
		slog.Info("orchestrate: turn cancelled", "doc_id", doc.ID)
		return ErrCancelled
	}
	slog.Error("orchestrate: generation failed", "doc_id", doc.ID, "error", callErr)
	return fmt.Errorf("%w: %v", ErrGenerationFailed, callErr)
}
