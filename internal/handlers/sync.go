package handlers

import (
	"crypto/subtle"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/security"
	"protocol-navigator/internal/storage"
	"protocol-navigator/internal/store"
)

// SyncSecretHeader carries the shared secret for folder sync triggers.
const SyncSecretHeader = "X-Sync-Secret"

// SyncHandler exposes folder synchronization: status of the monitored
// directory and an on-demand ingestion trigger protected by a shared secret.
type SyncHandler struct {
	store       *store.Store
	registry    storage.DocumentRegistry
	audit       AuditSink
	auth        *security.Authorizer
	roleHeader  string
	enabled     bool
	dir         string
	secret      string
	allowedExts map[string]struct{}
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(st *store.Store, registry storage.DocumentRegistry, audit AuditSink, auth *security.Authorizer, roleHeader string, enabled bool, dir, secret string, allowedExts map[string]struct{}) *SyncHandler {
	return &SyncHandler{
		store:       st,
		registry:    registry,
		audit:       audit,
		auth:        auth,
		roleHeader:  roleHeader,
		enabled:     enabled,
		dir:         dir,
		secret:      secret,
		allowedExts: allowedExts,
	}
}

// SyncStatusResponse describes the monitored folder.
type SyncStatusResponse struct {
	Enabled      bool     `json:"enabled"`
	MonitoredDir string   `json:"monitored_dir"`
	DirExists    bool     `json:"dir_exists"`
	Extensions   []string `json:"extensions"`
}

// SyncFolderResponse reports the outcome of a folder ingestion run.
type SyncFolderResponse struct {
	Ingested  []store.DocumentInfo `json:"ingested"`
	Documents int                  `json:"documents"`
	Version   int64                `json:"version"`
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := authorize(w, r, h.auth, h.roleHeader, security.PermRead); !ok {
		return
	}

	dirExists := false
	if h.dir != "" {
		if info, err := os.Stat(h.dir); err == nil && info.IsDir() {
			dirExists = true
		}
	}

	exts := make([]string, 0, len(h.allowedExts))
	for ext := range h.allowedExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	writeJSON(ctx, w, http.StatusOK, SyncStatusResponse{
		Enabled:      h.enabled,
		MonitoredDir: h.dir,
		DirExists:    dirExists,
		Extensions:   exts,
	})
}

// Folder handles POST /api/sync/folder. The caller must present the shared
// secret; the configured role header is still consulted for the ingest
// permission so sync cannot be used to bypass RBAC.
func (h *SyncHandler) Folder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if !h.enabled {
		writeError(ctx, w, http.StatusServiceUnavailable, "Folder sync is disabled")
		return
	}

	if h.secret != "" {
		provided := r.Header.Get(SyncSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
			logger.WarnContext(ctx, "folder sync rejected, bad shared secret")
			writeError(ctx, w, http.StatusUnauthorized, "Invalid sync secret")
			return
		}
	}

	role, ok := authorize(w, r, h.auth, h.roleHeader, security.PermIngest)
	if !ok {
		return
	}

	if h.dir == "" {
		writeError(ctx, w, http.StatusServiceUnavailable, "No monitored directory configured")
		return
	}

	ingested := h.store.IngestFolder(h.dir, h.allowedExts)
	for _, doc := range ingested {
		record := &storage.DocumentRecord{
			DocID:    doc.DocID,
			DocName:  doc.DocName,
			FilePath: filepath.Join(h.dir, doc.DocName),
			Pages:    doc.Pages,
			Chunks:   doc.Chunks,
		}
		if err := h.registry.Upsert(ctx, record); err != nil {
			logger.WarnContext(ctx, "failed to record synced document", "doc_id", doc.DocID, "error", err)
		}
	}

	recordAudit(ctx, h.audit, "folder_sync", map[string]any{
		"dir":      h.dir,
		"ingested": len(ingested),
		"role":     role,
	})

	logger.InfoContext(ctx, "folder sync complete", "dir", h.dir, "ingested", len(ingested))

	writeJSON(ctx, w, http.StatusOK, SyncFolderResponse{
		Ingested:  ingested,
		Documents: len(h.store.ListDocuments()),
		Version:   h.store.Version(),
	})
}
