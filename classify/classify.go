// Package classify turns raw uploaded bytes into typed, structured document
// content: a category from a closed set, a canonical text representation,
// and an optional structured payload.
//
// Images and PDFs travel to the model as inline binary; office formats are
// converted locally to plain text first; everything else is treated as raw
// text. Malformed model output never fails an upload; it degrades to
// CategoryUnknown with whatever text is available.
package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/docviz-io/docviz/llm"
)

// Classifier classifies and extracts uploaded documents. Pure apart from the
// single model call per classification; persistence is the caller's job.
type Classifier struct {
	provider llm.Provider
}

// New creates a Classifier backed by the given provider. Binary formats
// (images, PDFs) additionally need the provider to implement
// llm.FileProvider; text formats work with any provider.
func New(provider llm.Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify dispatches on media type and runs exactly one model call.
// mediaType may be empty or application/octet-stream, in which case it is
// sniffed from the bytes.
func (c *Classifier) Classify(ctx context.Context, data []byte, mediaType, fileName string) (*Result, error) {
	mt := resolveMediaType(data, mediaType, fileName)

	switch {
	case strings.HasPrefix(mt, "image/"), mt == "application/pdf":
		return c.classifyBinary(ctx, data, mt, fileName), nil

	case isSpreadsheet(mt, fileName):
		text, err := convertXLSX(data)
		if err != nil {
			slog.Warn("classify: spreadsheet conversion failed", "file", fileName, "error", err)
			return &Result{Category: CategoryUnknown, Text: ""}, nil
		}
		return c.classifyText(ctx, text, fileName), nil

	case isWordProcessor(mt, fileName):
		text, err := convertDOCX(data)
		if err != nil {
			slog.Warn("classify: document conversion failed", "file", fileName, "error", err)
			return &Result{Category: CategoryUnknown, Text: ""}, nil
		}
		return c.classifyText(ctx, text, fileName), nil

	default:
		return c.classifyText(ctx, string(data), fileName), nil
	}
}

// classifyText sends converted or raw text through the classification prompt.
func (c *Classifier) classifyText(ctx context.Context, text, fileName string) *Result {
	resp, err := c.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: classifyInstruction},
			{Role: "user", Content: fmt.Sprintf("File name: %s\n\nDocument content:\n%s", fileName, text)},
		},
		Temperature:    0,
		ResponseFormat: "json_object",
	})
	if err != nil {
		slog.Warn("classify: model call failed", "file", fileName, "error", err)
		return &Result{Category: CategoryUnknown, Text: text}
	}

	res, err := parseModelOutput(resp.Content)
	if err != nil {
		slog.Warn("classify: unparseable model output", "file", fileName, "error", err)
		return &Result{Category: CategoryUnknown, Text: text}
	}
	return res
}

// classifyBinary sends images and PDFs to the model as an inline data URL.
// When the provider cannot carry files, or the call fails, a PDF degrades to
// locally extracted page text; an image degrades to an empty unknown result.
func (c *Classifier) classifyBinary(ctx context.Context, data []byte, mediaType, fileName string) *Result {
	fp, ok := c.provider.(llm.FileProvider)
	if !ok {
		slog.Warn("classify: provider lacks file support", "file", fileName, "media_type", mediaType)
		return c.degradeBinary(data, mediaType)
	}

	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := fp.ChatWithFiles(ctx, llm.FileChatRequest{
		Messages: []llm.FileMessage{
			{
				Role: "user",
				Content: []llm.ContentPart{
					{Type: "text", Text: classifyInstruction + "\n\nFile name: " + fileName},
					{Type: "image_url", ImageURL: &llm.ImageURL{URL: dataURL}},
				},
			},
		},
		Temperature: 0,
	})
	if err != nil {
		slog.Warn("classify: model call failed", "file", fileName, "error", err)
		return c.degradeBinary(data, mediaType)
	}

	res, err := parseModelOutput(resp.Content)
	if err != nil {
		slog.Warn("classify: unparseable model output", "file", fileName, "error", err)
		degraded := c.degradeBinary(data, mediaType)
		if degraded.Text == "" {
			degraded.Text = strings.TrimSpace(resp.Content)
		}
		return degraded
	}
	return res
}

func (c *Classifier) degradeBinary(data []byte, mediaType string) *Result {
	if mediaType == "application/pdf" {
		if text, err := extractPDFText(data); err == nil {
			return &Result{Category: CategoryUnknown, Text: text}
		}
	}
	return &Result{Category: CategoryUnknown, Text: ""}
}

// ExtractText converts uploaded bytes to plain text without any model call.
// Office formats are converted locally, PDFs use page-text extraction, and
// images yield no text. Returns the text and the resolved media type. Used
// for source fragments, which need content but not classification.
func ExtractText(data []byte, mediaType, fileName string) (string, string) {
	mt := resolveMediaType(data, mediaType, fileName)

	switch {
	case strings.HasPrefix(mt, "image/"):
		return "", mt

	case mt == "application/pdf":
		text, err := extractPDFText(data)
		if err != nil {
			slog.Warn("classify: pdf text extraction failed", "file", fileName, "error", err)
			return "", mt
		}
		return text, mt

	case isSpreadsheet(mt, fileName):
		text, err := convertXLSX(data)
		if err != nil {
			slog.Warn("classify: spreadsheet conversion failed", "file", fileName, "error", err)
			return "", mt
		}
		return text, mt

	case isWordProcessor(mt, fileName):
		text, err := convertDOCX(data)
		if err != nil {
			slog.Warn("classify: document conversion failed", "file", fileName, "error", err)
			return "", mt
		}
		return text, mt

	default:
		return string(data), mt
	}
}

// resolveMediaType trusts an explicit caller-supplied media type, otherwise
// sniffs the content and falls back to the file extension.
func resolveMediaType(data []byte, mediaType, fileName string) string {
	mt := strings.TrimSpace(strings.ToLower(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}

	detected := mimetype.Detect(data)
	if detected.String() != "application/octet-stream" {
		return detected.String()
	}

	// Last resort: extension-based guesses for formats the sniffer missed.
	switch {
	case hasExt(fileName, ".xlsx", ".xls"):
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case hasExt(fileName, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case hasExt(fileName, ".csv"):
		return "text/csv"
	default:
		return "text/plain"
	}
}

func isSpreadsheet(mediaType, fileName string) bool {
	switch mediaType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return true
	}
	return hasExt(fileName, ".xlsx", ".xls")
}

func isWordProcessor(mediaType, fileName string) bool {
	switch mediaType {
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword":
		return true
	}
	return hasExt(fileName, ".docx")
}

func hasExt(fileName string, exts ...string) bool {
	lower := strings.ToLower(fileName)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
