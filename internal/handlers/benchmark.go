package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/rag"
	"protocol-navigator/internal/security"
)

// BenchmarkHandler runs one question through both retrieval modes so their
// answers, citations and context statistics can be compared side by side.
type BenchmarkHandler struct {
	engine     QuestionEngine
	audit      AuditSink
	auth       *security.Authorizer
	roleHeader string
}

// NewBenchmarkHandler creates a new BenchmarkHandler.
func NewBenchmarkHandler(engine QuestionEngine, audit AuditSink, auth *security.Authorizer, roleHeader string) *BenchmarkHandler {
	return &BenchmarkHandler{
		engine:     engine,
		audit:      audit,
		auth:       auth,
		roleHeader: roleHeader,
	}
}

// BenchmarkRequest represents the benchmark request payload.
type BenchmarkRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// BenchmarkResponse holds one result per retrieval mode.
type BenchmarkResponse struct {
	Question string                      `json:"question"`
	Results  map[string]*rag.AskResponse `json:"results"`
}

func (h *BenchmarkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	role, ok := authorize(w, r, h.auth, h.roleHeader, security.PermQuery)
	if !ok {
		return
	}

	var req BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(ctx, w, http.StatusBadRequest, "Question is required")
		return
	}
	if req.TopK < 0 {
		req.TopK = 0
	}
	if req.TopK > 50 {
		req.TopK = 50
	}

	results := make(map[string]*rag.AskResponse, 2)
	for _, mode := range []rag.Mode{rag.ModeRAG, rag.ModeLongContext} {
		resp := h.engine.Ask(ctx, req.Question, req.TopK, mode)
		results[string(mode)] = &resp
	}

	recordAudit(ctx, h.audit, "benchmark_run", map[string]any{
		"top_k": req.TopK,
		"role":  role,
	})

	writeJSON(ctx, w, http.StatusOK, BenchmarkResponse{
		Question: req.Question,
		Results:  results,
	})
}
