package handlers

import (
	"context"
	"net/http"
	"time"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/storage"
	"protocol-navigator/internal/store"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store              *store.Store
	registry           storage.DocumentRegistry
	llmConfigured      bool
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(st *store.Store, registry storage.DocumentRegistry, llmConfigured bool) *HealthHandler {
	return &HealthHandler{
		store:              st,
		registry:           registry,
		llmConfigured:      llmConfigured,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Number of ingested documents
	Documents int `json:"documents"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK if healthy, 503 Service Unavailable otherwise. The answer
// model being unconfigured is reported but does not make the system unhealthy
// because every query path has an extractive fallback.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Returns the health status of the system including the document registry and
// the answer model configuration.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if _, err := h.registry.List(checkCtx); err != nil {
		logger.WarnContext(ctx, "registry health check failed", "error", err)
		checks["registry"] = "error"
		issues = append(issues, "registry_unavailable")
	} else {
		checks["registry"] = "ok"
	}

	if h.llmConfigured {
		checks["llm"] = "configured"
	} else {
		checks["llm"] = "not_configured"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Documents: len(h.store.ListDocuments()),
	}
	if len(issues) > 0 {
		response.Issues = issues
	}

	writeJSON(ctx, w, httpStatus, response)
}
