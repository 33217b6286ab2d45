package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/docviz-io/docviz"
	"github.com/docviz-io/docviz/tabular"
)

// statusClientClosedRequest is the nginx convention for a request the client
// abandoned; the response is unlikely to be seen, but the status keeps access
// logs honest.
const statusClientClosedRequest = 499

type handler struct {
	engine docviz.Engine
}

func newHandler(e docviz.Engine) *handler {
	return &handler{engine: e}
}

// POST /documents
// Multipart upload: field "file" carries the document.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(50 << 20); err != nil { // 50MB max
		writeError(w, http.StatusBadRequest, "expected multipart upload with 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		slog.Error("reading upload", "error", err)
		return
	}

	// Sanitise filename to prevent path traversal in display names.
	safeName := filepath.Base(header.Filename)

	doc, err := h.engine.Upload(ctx, data, header.Header.Get("Content-Type"), safeName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "upload failed")
		slog.Error("upload error", "file", safeName, "error", err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// POST /documents/{id}/message
func (h *handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req struct {
		Instruction string   `json:"instruction"`
		LinkedIDs   []string `json:"linked_document_ids,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Instruction == "" {
		writeError(w, http.StatusBadRequest, "instruction is required")
		return
	}

	var opts []docviz.TurnOption
	if len(req.LinkedIDs) > 0 {
		opts = append(opts, docviz.WithLinkedDocuments(req.LinkedIDs...))
	}

	res, err := h.engine.SendMessage(ctx, r.PathValue("id"), req.Instruction, opts...)
	switch {
	case errors.Is(err, docviz.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document not found")
		return
	case errors.Is(err, docviz.ErrTurnCancelled):
		writeError(w, statusClientClosedRequest, "turn cancelled")
		return
	case errors.Is(err, docviz.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "message failed")
		slog.Error("send message error", "document_id", r.PathValue("id"), "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":       res.Mode.String(),
		"message":    res.Message,
		"markup":     res.Markup,
		"transcript": res.Transcript,
	})
}

// POST /documents/{id}/fragments
func (h *handler) handleAttachFragment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart upload with 'file' field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		slog.Error("reading fragment upload", "error", err)
		return
	}

	safeName := filepath.Base(header.Filename)
	frag, err := h.engine.AttachFragment(r.Context(), r.PathValue("id"), safeName, data, header.Header.Get("Content-Type"))
	if errors.Is(err, docviz.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "attach failed")
		slog.Error("attach fragment error", "document_id", r.PathValue("id"), "error", err)
		return
	}

	writeJSON(w, http.StatusCreated, frag)
}

// DELETE /documents/{id}/fragments/{fragmentID}
func (h *handler) handleRemoveFragment(w http.ResponseWriter, r *http.Request) {
	err := h.engine.RemoveFragment(r.Context(), r.PathValue("id"), r.PathValue("fragmentID"))
	if errors.Is(err, docviz.ErrFragmentNotFound) {
		writeError(w, http.StatusNotFound, "fragment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "remove failed")
		slog.Error("remove fragment error", "document_id", r.PathValue("id"), "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// GET /documents/{id}/tables
func (h *handler) handleIdentifyTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	cands, err := h.engine.IdentifyTables(ctx, r.PathValue("id"))
	if err != nil {
		writeTableError(w, r, err)
		return
	}
	if cands == nil {
		cands = []tabular.Candidate{} // serialise as [], not null
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tables": cands,
	})
}

// GET /documents/{id}/tables/export?table_id=...&name=...
func (h *handler) handleExtractTable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	tableID := r.URL.Query().Get("table_id")
	tableName := r.URL.Query().Get("name")
	if tableID == "" && tableName == "" {
		writeError(w, http.StatusBadRequest, "table_id or name is required")
		return
	}

	csvText, err := h.engine.ExtractTable(ctx, r.PathValue("id"), tableID, tableName)
	if err != nil {
		writeTableError(w, r, err)
		return
	}

	fileName := tableName
	if fileName == "" {
		fileName = tableID
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName+".csv"))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, csvText)
}

func writeTableError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, docviz.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, docviz.ErrNoVisualization):
		writeError(w, http.StatusConflict, "document has no visualization")
	case errors.Is(err, docviz.ErrTableNotFound):
		writeError(w, http.StatusNotFound, "no extractable table")
	default:
		writeError(w, http.StatusInternalServerError, "table operation failed")
		slog.Error("table error", "document_id", r.PathValue("id"), "error", err)
	}
}

// GET /documents/{id}
func (h *handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.Store().GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// PATCH /documents/{id}
func (h *handler) handleRenameDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	err := h.engine.RenameDocument(r.Context(), r.PathValue("id"), req.DisplayName)
	if errors.Is(err, docviz.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "rename failed")
		slog.Error("rename error", "document_id", r.PathValue("id"), "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeleteDocument(r.Context(), r.PathValue("id"))
	if errors.Is(err, docviz.ErrDocumentNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete error", "document_id", r.PathValue("id"), "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
