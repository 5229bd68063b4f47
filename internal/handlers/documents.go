package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/security"
	"protocol-navigator/internal/storage"
	"protocol-navigator/internal/store"
)

// maxUploadBytes bounds the multipart form size for document uploads.
const maxUploadBytes = 64 << 20

// DocumentsHandler handles listing, uploading and resetting documents.
type DocumentsHandler struct {
	store       *store.Store
	registry    storage.DocumentRegistry
	audit       AuditSink
	auth        *security.Authorizer
	roleHeader  string
	allowedExts map[string]struct{}
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(st *store.Store, registry storage.DocumentRegistry, audit AuditSink, auth *security.Authorizer, roleHeader string, allowedExts map[string]struct{}) *DocumentsHandler {
	return &DocumentsHandler{
		store:       st,
		registry:    registry,
		audit:       audit,
		auth:        auth,
		roleHeader:  roleHeader,
		allowedExts: allowedExts,
	}
}

// DocumentListResponse represents the document inventory.
//
// swagger:model DocumentListResponse
type DocumentListResponse struct {
	Documents []store.DocumentInfo `json:"documents"`
	Version   int64                `json:"version"`
}

// UploadResponse represents the result of a document upload.
//
// swagger:model UploadResponse
type UploadResponse struct {
	Document store.DocumentInfo `json:"document"`
	Version  int64              `json:"version"`
}

// ResetResponse represents the result of clearing the corpus.
//
// swagger:model ResetResponse
type ResetResponse struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// List handles GET /api/documents.
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := authorize(w, r, h.auth, h.roleHeader, security.PermRead); !ok {
		return
	}

	docs := h.store.ListDocuments()
	writeJSON(ctx, w, http.StatusOK, DocumentListResponse{
		Documents: docs,
		Version:   h.store.Version(),
	})
}

// Upload handles POST /api/documents/upload. The file is stored under the
// upload directory with a uuid prefix so re-uploads of the same name never
// collide on disk, then chunked and indexed under its original name.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	role, ok := authorize(w, r, h.auth, h.roleHeader, security.PermIngest)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.WarnContext(ctx, "missing file field", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer file.Close()

	displayName := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(displayName))
	if _, allowed := h.allowedExts[ext]; !allowed {
		logger.WarnContext(ctx, "unsupported file extension", "file", displayName, "ext", ext)
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %s", ext))
		return
	}

	storedName := uuid.New().String()[:8] + "_" + displayName
	storedPath := filepath.Join(h.store.UploadDir(), storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		logger.ErrorContext(ctx, "failed to store upload", "path", storedPath, "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(storedPath)
		logger.ErrorContext(ctx, "failed to write upload", "path", storedPath, "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	dst.Close()

	doc, err := h.store.IngestFile(storedPath, displayName)
	if err != nil {
		os.Remove(storedPath)
		logger.ErrorContext(ctx, "failed to ingest upload", "file", displayName, "error", err)
		writeError(ctx, w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to ingest %s", displayName))
		return
	}

	if err := h.registry.Upsert(ctx, &storage.DocumentRecord{
		DocID:    doc.DocID,
		DocName:  doc.DocName,
		FilePath: storedPath,
		Pages:    doc.Pages,
		Chunks:   doc.Chunks,
	}); err != nil {
		logger.WarnContext(ctx, "failed to record document in registry", "doc_id", doc.DocID, "error", err)
	}

	recordAudit(ctx, h.audit, "document_upload", map[string]any{
		"doc_id":   doc.DocID,
		"doc_name": doc.DocName,
		"pages":    doc.Pages,
		"chunks":   doc.Chunks,
		"role":     role,
	})

	logger.InfoContext(ctx, "document ingested",
		"doc_id", doc.DocID, "doc_name", doc.DocName, "pages", doc.Pages, "chunks", doc.Chunks)

	writeJSON(ctx, w, http.StatusOK, UploadResponse{
		Document: doc,
		Version:  h.store.Version(),
	})
}

// Reset handles POST /api/documents/reset. It clears the in-memory corpus,
// deletes stored upload files and empties the registry.
func (h *DocumentsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	role, ok := authorize(w, r, h.auth, h.roleHeader, security.PermAdmin)
	if !ok {
		return
	}

	removed := len(h.store.ListDocuments())
	h.store.Clear(true)

	if err := h.registry.DeleteAll(ctx); err != nil {
		logger.WarnContext(ctx, "failed to clear document registry", "error", err)
	}

	recordAudit(ctx, h.audit, "documents_reset", map[string]any{
		"documents_removed": removed,
		"role":              role,
	})

	logger.InfoContext(ctx, "documents reset", "documents_removed", removed)

	writeJSON(ctx, w, http.StatusOK, ResetResponse{
		Status:  "reset",
		Version: h.store.Version(),
	})
}
