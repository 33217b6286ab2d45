// Package docviz turns uploaded documents into interactive visualizations
// driven by conversation. Uploads are classified and extracted into typed
// content, conversation turns refine an HTML visualization through a single
// model call each, and rendered tables can be exported back out as CSV.
package docviz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/docviz-io/docviz/classify"
	"github.com/docviz-io/docviz/llm"
	"github.com/docviz-io/docviz/orchestrate"
	"github.com/docviz-io/docviz/store"
	"github.com/docviz-io/docviz/tabular"
)

// Engine is the main entry point.
type Engine interface {
	// Upload classifies and extracts an uploaded file and creates its
	// document record. Classification failures degrade to category
	// "unknown"; they never fail the upload.
	Upload(ctx context.Context, data []byte, mediaType, fileName string) (*store.Document, error)

	// SendMessage runs one conversation turn against a document. Exactly one
	// model call; markup and transcript persist together.
	SendMessage(ctx context.Context, documentID, instruction string, opts ...TurnOption) (*orchestrate.TurnResult, error)

	// AttachFragment adds an additional source file to a document. Its text
	// joins the context block on the next full-context turn.
	AttachFragment(ctx context.Context, documentID, originName string, data []byte, mediaType string) (*store.SourceFragment, error)

	// RemoveFragment detaches a source fragment.
	RemoveFragment(ctx context.Context, documentID, fragmentID string) error

	// IdentifyTables enumerates exportable tables in a document's current
	// visualization.
	IdentifyTables(ctx context.Context, documentID string) ([]tabular.Candidate, error)

	// ExtractTable exports one table from the current visualization as CSV.
	ExtractTable(ctx context.Context, documentID, tableID, tableName string) (string, error)

	// ListDocuments returns all document records, newest first.
	ListDocuments(ctx context.Context) ([]store.Document, error)

	// RenameDocument changes a document's display name.
	RenameDocument(ctx context.Context, documentID, displayName string) error

	// DeleteDocument removes a document and its fragments.
	DeleteDocument(ctx context.Context, documentID string) error

	// Store exposes the underlying store for diagnostic access.
	Store() *store.Store

	// Close shuts the engine down.
	Close() error
}

// TurnOption configures a single conversation turn.
type TurnOption func(*turnOptions)

type turnOptions struct {
	linkedIDs []string
}

// WithLinkedDocuments names other documents whose content joins the context
// block on full-context turns.
func WithLinkedDocuments(ids ...string) TurnOption {
	return func(o *turnOptions) { o.linkedIDs = ids }
}

// Option configures engine construction.
type Option func(*engine)

// WithGenerationProvider overrides the conversation provider built from
// Config.Generation.
func WithGenerationProvider(p llm.Provider) Option {
	return func(e *engine) { e.genLLM = p }
}

// WithClassificationProvider overrides the upload-time provider built from
// Config.Classification.
func WithClassificationProvider(p llm.Provider) Option {
	return func(e *engine) { e.classLLM = p }
}

// WithExtractionProvider overrides the table-export fallback provider built
// from Config.Extraction.
func WithExtractionProvider(p llm.Provider) Option {
	return func(e *engine) { e.extractLLM = p }
}

// WithIntentClassifier overrides the phrase matcher that decides when a turn
// needs full source context.
func WithIntentClassifier(ic orchestrate.IntentClassifier) Option {
	return func(e *engine) { e.intent = ic }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg        Config
	store      *store.Store
	genLLM     llm.Provider
	classLLM   llm.Provider
	extractLLM llm.Provider
	intent     orchestrate.IntentClassifier

	classifier   *classify.Classifier
	orchestrator *orchestrate.Orchestrator
	tables       *tabular.Engine
}

// New creates an engine from the configuration. Classification and
// extraction providers default to the generation provider when their config
// sections are empty.
func New(cfg Config, opts ...Option) (Engine, error) {
	e := &engine{cfg: cfg}
	for _, o := range opts {
		o(e)
	}

	if e.genLLM == nil {
		p, err := llm.NewProvider(llm.Config{
			Provider: cfg.Generation.Provider,
			Model:    cfg.Generation.Model,
			BaseURL:  cfg.Generation.BaseURL,
			APIKey:   cfg.Generation.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: generation provider: %v", ErrInvalidConfig, err)
		}
		e.genLLM = p
	}
	if e.classLLM == nil {
		e.classLLM = e.genLLM
		if cfg.Classification.Provider != "" {
			p, err := llm.NewProvider(llm.Config{
				Provider: cfg.Classification.Provider,
				Model:    cfg.Classification.Model,
				BaseURL:  cfg.Classification.BaseURL,
				APIKey:   cfg.Classification.APIKey,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: classification provider: %v", ErrInvalidConfig, err)
			}
			e.classLLM = p
		}
	}
	if e.extractLLM == nil {
		e.extractLLM = e.genLLM
		if cfg.Extraction.Provider != "" {
			p, err := llm.NewProvider(llm.Config{
				Provider: cfg.Extraction.Provider,
				Model:    cfg.Extraction.Model,
				BaseURL:  cfg.Extraction.BaseURL,
				APIKey:   cfg.Extraction.APIKey,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: extraction provider: %v", ErrInvalidConfig, err)
			}
			e.extractLLM = p
		}
	}

	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	e.store = s

	e.classifier = classify.New(e.classLLM)
	e.orchestrator = orchestrate.New(e.genLLM, s, e.intent)
	e.tables = tabular.New(e.extractLLM)
	return e, nil
}

func (e *engine) Upload(ctx context.Context, data []byte, mediaType, fileName string) (*store.Document, error) {
	res, err := e.classifier.Classify(ctx, data, mediaType, fileName)
	if err != nil {
		return nil, fmt.Errorf("classifying upload: %w", err)
	}

	doc := store.Document{
		ID:            uuid.NewString(),
		DisplayName:   fileName,
		Category:      string(res.Category),
		ExtractedText: res.Text,
	}
	if res.Structured != nil {
		structured, err := json.Marshal(res.Structured)
		if err != nil {
			return nil, fmt.Errorf("encoding structured payload: %w", err)
		}
		doc.Structured = structured
	}

	if err := e.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	slog.Info("docviz: document uploaded",
		"doc_id", doc.ID, "file", fileName, "category", doc.Category,
		"items", res.Structured.ItemCount())
	return e.store.GetDocument(ctx, doc.ID)
}

func (e *engine) SendMessage(ctx context.Context, documentID, instruction string, opts ...TurnOption) (*orchestrate.TurnResult, error) {
	options := &turnOptions{}
	for _, o := range opts {
		o(options)
	}

	res, err := e.orchestrator.SendMessage(ctx, documentID, instruction, options.linkedIDs)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	return res, err
}

func (e *engine) AttachFragment(ctx context.Context, documentID, originName string, data []byte, mediaType string) (*store.SourceFragment, error) {
	text, resolvedType := classify.ExtractText(data, mediaType, originName)

	frag := store.SourceFragment{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		OriginName: originName,
		Content:    text,
		MediaType:  resolvedType,
	}
	if err := e.store.AddFragment(ctx, frag); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("attaching fragment: %w", err)
	}
	slog.Info("docviz: fragment attached",
		"doc_id", documentID, "fragment_id", frag.ID, "origin", originName, "media_type", resolvedType)
	return &frag, nil
}

func (e *engine) RemoveFragment(ctx context.Context, documentID, fragmentID string) error {
	err := e.store.RemoveFragment(ctx, documentID, fragmentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrFragmentNotFound
	}
	return err
}

func (e *engine) IdentifyTables(ctx context.Context, documentID string) ([]tabular.Candidate, error) {
	markup, err := e.visualization(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return e.tables.Identify(ctx, markup), nil
}

func (e *engine) ExtractTable(ctx context.Context, documentID, tableID, tableName string) (string, error) {
	markup, err := e.visualization(ctx, documentID)
	if err != nil {
		return "", err
	}
	csvText, ok := e.tables.Extract(ctx, markup, tableID, tableName)
	if !ok {
		return "", ErrTableNotFound
	}
	return csvText, nil
}

// visualization loads a document's current markup, which table operations
// require to exist.
func (e *engine) visualization(ctx context.Context, documentID string) (string, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrDocumentNotFound
	}
	if err != nil {
		return "", err
	}
	if doc.Visualization == nil || *doc.Visualization == "" {
		return "", ErrNoVisualization
	}
	return *doc.Visualization, nil
}

func (e *engine) ListDocuments(ctx context.Context) ([]store.Document, error) {
	return e.store.ListDocuments(ctx)
}

func (e *engine) RenameDocument(ctx context.Context, documentID, displayName string) error {
	err := e.store.RenameDocument(ctx, documentID, displayName)
	if errors.Is(err, store.ErrNotFound) {
		return ErrDocumentNotFound
	}
	return err
}

func (e *engine) DeleteDocument(ctx context.Context, documentID string) error {
	err := e.store.DeleteDocument(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrDocumentNotFound
	}
	return err
}

func (e *engine) Store() *store.Store {
	return e.store
}

func (e *engine) Close() error {
	return e.store.Close()
}
