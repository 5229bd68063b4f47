package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/rag"
	"protocol-navigator/internal/security"
)

//go:generate mockgen -source=ask.go -destination=mocks/mock_question_engine.go -package=mocks

// QuestionEngine answers questions against the loaded document corpus.
type QuestionEngine interface {
	Ask(ctx context.Context, question string, topK int, mode rag.Mode) rag.AskResponse
}

// AskHandler handles HTTP requests for document questions.
type AskHandler struct {
	engine     QuestionEngine
	audit      AuditSink
	auth       *security.Authorizer
	roleHeader string
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(engine QuestionEngine, audit AuditSink, auth *security.Authorizer, roleHeader string) *AskHandler {
	return &AskHandler{
		engine:     engine,
		audit:      audit,
		auth:       auth,
		roleHeader: roleHeader,
	}
}

// AskRequest represents the HTTP request payload for questions.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// ServeHTTP handles HTTP requests for questions.
//
// swagger:route POST /api/ask askQuestion
//
// # Ask a question about the loaded documents
//
// In "rag" mode (the default) the top-k most similar chunks are retrieved
// from the sparse index. In "long_context" mode a multi-document context is
// assembled under the configured size budgets. Both modes return the answer
// with paragraph-level citations.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/AskRequest"
//
// responses:
//
//	'200':
//	  description: Answer with citations and context statistics
//	'400':
//	  description: Bad request (missing question)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'403':
//	  description: Caller's role lacks the query permission
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	role, ok := authorize(w, r, h.auth, h.roleHeader, security.PermQuery)
	if !ok {
		return
	}

	var req AskRequest
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

	// Zero means "use the configured default". Cap user-provided values.
	if req.TopK < 0 {
		req.TopK = 0
	}
	if req.TopK > 50 {
		req.TopK = 50
	}

	mode := rag.ModeRAG
	if strings.ToLower(strings.TrimSpace(req.Mode)) == string(rag.ModeLongContext) {
		mode = rag.ModeLongContext
	}

	resp := h.engine.Ask(ctx, req.Question, req.TopK, mode)

	recordAudit(ctx, h.audit, "question_asked", map[string]any{
		"mode":           string(resp.Mode),
		"top_k":          req.TopK,
		"context_chunks": resp.ContextChunks,
		"latency_ms":     resp.LatencyMs,
		"role":           role,
	})

	writeJSON(ctx, w, http.StatusOK, resp)
}
