package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"protocol-navigator/internal/handlers"
	"protocol-navigator/internal/security"
	"protocol-navigator/internal/storage"
	"protocol-navigator/internal/store"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Store         *store.Store
	Engine        handlers.QuestionEngine
	Registry      storage.DocumentRegistry
	Audit         handlers.AuditSink
	AuditVerifier handlers.AuditVerifier
	Authorizer    *security.Authorizer

	RoleHeader        string
	LLMConfigured     bool
	AllowedExtensions map[string]struct{}

	SyncEnabled bool
	SyncDir     string
	SyncSecret  string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Registry, deps.LLMConfigured)
	documentsHandler := handlers.NewDocumentsHandler(deps.Store, deps.Registry, deps.Audit, deps.Authorizer, deps.RoleHeader, deps.AllowedExtensions)
	askHandler := handlers.NewAskHandler(deps.Engine, deps.Audit, deps.Authorizer, deps.RoleHeader)
	benchmarkHandler := handlers.NewBenchmarkHandler(deps.Engine, deps.Audit, deps.Authorizer, deps.RoleHeader)
	syncHandler := handlers.NewSyncHandler(deps.Store, deps.Registry, deps.Audit, deps.Authorizer, deps.RoleHeader,
		deps.SyncEnabled, deps.SyncDir, deps.SyncSecret, deps.AllowedExtensions)
	auditHandler := handlers.NewAuditHandler(deps.AuditVerifier, deps.Authorizer, deps.RoleHeader)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/documents", documentsHandler.List)
		r.Post("/documents/upload", documentsHandler.Upload)
		r.Post("/documents/reset", documentsHandler.Reset)
		r.Method(http.MethodPost, "/ask", askHandler)
		r.Method(http.MethodPost, "/benchmark", benchmarkHandler)
		r.Get("/sync/status", syncHandler.Status)
		r.Post("/sync/folder", syncHandler.Folder)
		r.Get("/audit/verify", auditHandler.Verify)
	})

	return r
}
