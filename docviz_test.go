//go:build cgo

package docviz

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docviz-io/docviz/llm"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.response}, nil
}

const invoiceClassification = `{
  "category": "invoice",
  "summary": "Invoice from Acme with one line item.",
  "structured": {
    "title": "Acme Invoice",
    "items": [{"date": "2026-01-05", "description": "Widget", "amount": "$1,250.00"}],
    "totals": {"total": "$1,250.00"}
  }
}`

const tableUpdate = "Here is your invoice.\n---HTML---\n" +
	"<html><body><table><tr><th>Item</th><th>Price</th></tr>" +
	"<tr><td>Widget</td><td>$1,250.00</td></tr></table></body></html>"

func newTestEngine(t *testing.T, gen, class, extract llm.Provider) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "docviz.db")

	e, err := New(cfg,
		WithGenerationProvider(gen),
		WithClassificationProvider(class),
		WithExtractionProvider(extract),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestUploadThroughExport(t *testing.T) {
	gen := &fakeProvider{response: tableUpdate}
	class := &fakeProvider{response: invoiceClassification}
	extract := &fakeProvider{}
	e := newTestEngine(t, gen, class, extract)
	ctx := context.Background()

	doc, err := e.Upload(ctx, []byte("Acme invoice. Widget $1,250.00"), "text/plain", "invoice.txt")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Category != "invoice" {
		t.Errorf("category = %q, want invoice", doc.Category)
	}
	if !strings.Contains(string(doc.Structured), "Widget") {
		t.Errorf("structured payload missing items: %s", doc.Structured)
	}

	res, err := e.SendMessage(ctx, doc.ID, "visualize my invoice")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if res.Markup == nil {
		t.Fatal("expected a markup update")
	}

	cands, err := e.IdentifyTables(ctx, doc.ID)
	if err != nil {
		t.Fatalf("IdentifyTables: %v", err)
	}
	if len(cands) != 1 || cands[0].RowCount != 1 {
		t.Fatalf("candidates = %+v", cands)
	}

	csvText, err := e.ExtractTable(ctx, doc.ID, cands[0].ID, "")
	if err != nil {
		t.Fatalf("ExtractTable: %v", err)
	}
	if want := "Item,Price\nWidget,$1250.00"; csvText != want {
		t.Errorf("csv = %q, want %q", csvText, want)
	}
	if extract.calls != 0 {
		t.Errorf("structural export must not call the extraction model, got %d calls", extract.calls)
	}
}

func TestUploadDegradedClassification(t *testing.T) {
	class := &fakeProvider{err: errors.New("model offline")}
	e := newTestEngine(t, &fakeProvider{}, class, &fakeProvider{})

	doc, err := e.Upload(context.Background(), []byte("some text"), "text/plain", "notes.txt")
	if err != nil {
		t.Fatalf("Upload must not fail on classification errors: %v", err)
	}
	if doc.Category != "unknown" {
		t.Errorf("category = %q, want unknown", doc.Category)
	}
	if doc.ExtractedText != "some text" {
		t.Errorf("extracted text = %q", doc.ExtractedText)
	}
}

func TestFragments(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, &fakeProvider{response: invoiceClassification}, &fakeProvider{})
	ctx := context.Background()

	doc, err := e.Upload(ctx, []byte("invoice text"), "text/plain", "invoice.txt")
	if err != nil {
		t.Fatal(err)
	}

	frag, err := e.AttachFragment(ctx, doc.ID, "extra.csv", []byte("a,b\n1,2"), "text/csv")
	if err != nil {
		t.Fatalf("AttachFragment: %v", err)
	}
	if frag.Content != "a,b\n1,2" {
		t.Errorf("fragment content = %q", frag.Content)
	}

	got, err := e.Store().GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Fragments) != 1 || got.Fragments[0].OriginName != "extra.csv" {
		t.Errorf("fragments = %+v", got.Fragments)
	}

	if err := e.RemoveFragment(ctx, doc.ID, frag.ID); err != nil {
		t.Fatalf("RemoveFragment: %v", err)
	}
	if err := e.RemoveFragment(ctx, doc.ID, frag.ID); !errors.Is(err, ErrFragmentNotFound) {
		t.Errorf("second remove = %v, want ErrFragmentNotFound", err)
	}

	if _, err := e.AttachFragment(ctx, "ghost", "x.txt", []byte("x"), "text/plain"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("attach to missing doc = %v, want ErrDocumentNotFound", err)
	}
}

func TestTableOpsRequireVisualization(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, &fakeProvider{response: invoiceClassification}, &fakeProvider{})
	ctx := context.Background()

	doc, err := e.Upload(ctx, []byte("invoice text"), "text/plain", "invoice.txt")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.IdentifyTables(ctx, doc.ID); !errors.Is(err, ErrNoVisualization) {
		t.Errorf("IdentifyTables = %v, want ErrNoVisualization", err)
	}
	if _, err := e.ExtractTable(ctx, doc.ID, "t1", ""); !errors.Is(err, ErrNoVisualization) {
		t.Errorf("ExtractTable = %v, want ErrNoVisualization", err)
	}
	if _, err := e.IdentifyTables(ctx, "ghost"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("IdentifyTables on missing doc = %v, want ErrDocumentNotFound", err)
	}
}

func TestExtractTableNotFound(t *testing.T) {
	gen := &fakeProvider{response: "Done.\n---HTML---\n<canvas></canvas>"}
	extract := &fakeProvider{err: errors.New("model offline")}
	e := newTestEngine(t, gen, &fakeProvider{response: invoiceClassification}, extract)
	ctx := context.Background()

	doc, err := e.Upload(ctx, []byte("invoice text"), "text/plain", "invoice.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.SendMessage(ctx, doc.ID, "chart it"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ExtractTable(ctx, doc.ID, "spend", "Spending"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("ExtractTable = %v, want ErrTableNotFound", err)
	}
}

func TestSendMessageUnknownDocument(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, &fakeProvider{}, &fakeProvider{})
	if _, err := e.SendMessage(context.Background(), "ghost", "hi"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentCRUD(t *testing.T) {
	e := newTestEngine(t, &fakeProvider{}, &fakeProvider{response: invoiceClassification}, &fakeProvider{})
	ctx := context.Background()

	a, err := e.Upload(ctx, []byte("first"), "text/plain", "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Upload(ctx, []byte("second"), "text/plain", "b.txt"); err != nil {
		t.Fatal(err)
	}

	docs, err := e.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}

	if err := e.RenameDocument(ctx, a.ID, "renamed.txt"); err != nil {
		t.Fatal(err)
	}
	got, err := e.Store().GetDocument(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "renamed.txt" {
		t.Errorf("display name = %q", got.DisplayName)
	}

	if err := e.DeleteDocument(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteDocument(ctx, a.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("second delete = %v, want ErrDocumentNotFound", err)
	}
	if err := e.RenameDocument(ctx, a.ID, "x"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("rename deleted = %v, want ErrDocumentNotFound", err)
	}
}
