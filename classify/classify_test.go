package classify

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/docviz-io/docviz/llm"
)

// fakeProvider scripts one chat response (or error) and records the request.
type fakeProvider struct {
	response string
	err      error

	lastChat  *llm.ChatRequest
	lastFiles *llm.FileChatRequest
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.lastChat = &req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.response}, nil
}

func (f *fakeProvider) ChatWithFiles(ctx context.Context, req llm.FileChatRequest) (*llm.ChatResponse, error) {
	f.lastFiles = &req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.response}, nil
}

// textOnlyProvider implements llm.Provider but not llm.FileProvider.
type textOnlyProvider struct{}

func (p *textOnlyProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "{}"}, nil
}

func TestClassifyTextPath(t *testing.T) {
	fp := &fakeProvider{response: `{"category":"invoice","summary":"March invoice.","structured":{"items":[{"date":"2024-03-01","description":"Work","amount":"$10.00"}]}}`}
	c := New(fp)

	res, err := c.Classify(context.Background(), []byte("Invoice #12\nWork ... $10.00"), "text/plain", "invoice.txt")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategoryInvoice {
		t.Errorf("category = %q, want invoice", res.Category)
	}
	if res.Text != "March invoice." {
		t.Errorf("text = %q", res.Text)
	}
	if res.Structured == nil || len(res.Structured.Invoice) != 1 {
		t.Errorf("structured = %+v, want one invoice item", res.Structured)
	}
	if fp.lastChat == nil {
		t.Fatal("expected a text chat call")
	}
	if fp.lastChat.ResponseFormat != "json_object" {
		t.Errorf("response format = %q, want json_object", fp.lastChat.ResponseFormat)
	}
}

func TestClassifyModelFailureDegrades(t *testing.T) {
	fp := &fakeProvider{err: errors.New("connection refused")}
	c := New(fp)

	res, err := c.Classify(context.Background(), []byte("some text"), "text/plain", "notes.txt")
	if err != nil {
		t.Fatalf("Classify must not fail the upload: %v", err)
	}
	if res.Category != CategoryUnknown {
		t.Errorf("category = %q, want unknown", res.Category)
	}
	if res.Text != "some text" {
		t.Errorf("text = %q, want original text", res.Text)
	}
}

func TestClassifyMalformedOutputDegrades(t *testing.T) {
	fp := &fakeProvider{response: "I am unable to produce JSON today."}
	c := New(fp)

	res, err := c.Classify(context.Background(), []byte("plain content"), "text/plain", "a.txt")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategoryUnknown {
		t.Errorf("category = %q, want unknown", res.Category)
	}
	if res.Structured != nil {
		t.Error("degraded result must not carry a structured payload")
	}
}

func TestClassifyImageUsesFilePath(t *testing.T) {
	fp := &fakeProvider{response: `{"category":"healthcare","summary":"EOB for lab work."}`}
	c := New(fp)

	// Minimal PNG header; enough for dispatch, which keys off the media type.
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	res, err := c.Classify(context.Background(), png, "image/png", "eob.png")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategoryHealthcare {
		t.Errorf("category = %q, want healthcare", res.Category)
	}
	if fp.lastFiles == nil {
		t.Fatal("expected a file chat call for an image")
	}
	part := fp.lastFiles.Messages[0].Content[1]
	if part.ImageURL == nil || !strings.HasPrefix(part.ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("expected inline data URL, got %+v", part)
	}
	if fp.lastChat != nil {
		t.Error("image must not take the text path")
	}
}

func TestClassifyImageWithoutFileProvider(t *testing.T) {
	c := New(&textOnlyProvider{})

	res, err := c.Classify(context.Background(), []byte{0xff, 0xd8, 0xff}, "image/jpeg", "scan.jpg")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategoryUnknown {
		t.Errorf("category = %q, want unknown", res.Category)
	}
}

func TestClassifySpreadsheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "Course")
	_ = f.SetCellValue(sheet, "B1", "Room")
	_ = f.SetCellValue(sheet, "A2", "CS101")
	_ = f.SetCellValue(sheet, "B2", "H-204")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("building xlsx: %v", err)
	}

	fp := &fakeProvider{response: `{"category":"schedule","summary":"Course schedule."}`}
	c := New(fp)

	res, err := c.Classify(context.Background(), buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "courses.xlsx")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Category != CategorySchedule {
		t.Errorf("category = %q, want schedule", res.Category)
	}
	if fp.lastChat == nil {
		t.Fatal("spreadsheet must take the text path")
	}
	prompt := fp.lastChat.Messages[1].Content
	if !strings.Contains(prompt, "CS101, H-204") {
		t.Errorf("converted sheet text missing from prompt:\n%s", prompt)
	}
}

func TestConvertDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Quarterly Report</w:t></w:r></w:p>
    <w:p><w:r><w:t>Revenue grew </w:t></w:r><w:r><w:t>12 percent.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr><w:tc><w:p><w:r><w:t>Region</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Total</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(docXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	text, err := convertDOCX(buf.Bytes())
	if err != nil {
		t.Fatalf("convertDOCX: %v", err)
	}
	if !strings.Contains(text, "Quarterly Report") {
		t.Errorf("missing paragraph text:\n%s", text)
	}
	if !strings.Contains(text, "Revenue grew 12 percent.") {
		t.Errorf("runs within a paragraph must concatenate:\n%s", text)
	}
	if !strings.Contains(text, "| Region | Total |") {
		t.Errorf("missing table row:\n%s", text)
	}
}

func TestResolveMediaType(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		mediaType string
		fileName  string
		want      string
	}{
		{"explicit wins", []byte("x"), "application/pdf", "f.bin", "application/pdf"},
		{"parameters stripped", []byte("x"), "text/csv; charset=utf-8", "f.csv", "text/csv"},
		{"extension fallback xlsx", []byte{0x00, 0x01}, "", "sheet.xlsx",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"sniffed pdf", []byte("%PDF-1.4 etc"), "", "mystery", "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveMediaType(tt.data, tt.mediaType, tt.fileName); got != tt.want {
				t.Errorf("resolveMediaType = %q, want %q", got, tt.want)
			}
		})
	}
}
