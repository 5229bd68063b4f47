package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"protocol-navigator/internal/contextutil"
	"protocol-navigator/internal/security"
)

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuditSink records audit events. Failures are logged and never block the
// request that triggered them.
type AuditSink interface {
	Append(eventType string, payload map[string]any) (string, error)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := contextutil.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	writeJSON(ctx, w, statusCode, ErrorResponse{Error: message})
}

// authorize resolves the caller's role from the request header and checks the
// required permission. On failure it writes a 403 and returns ok=false.
func authorize(w http.ResponseWriter, r *http.Request, auth *security.Authorizer, roleHeader, permission string) (string, bool) {
	ctx := r.Context()
	role, err := auth.Ensure(permission, r.Header.Get(roleHeader))
	if err != nil {
		logger := contextutil.LoggerFromContext(ctx)
		logger.WarnContext(ctx, "request not authorized",
			"permission", permission, "role", r.Header.Get(roleHeader), "error", err)
		writeError(ctx, w, http.StatusForbidden, err.Error())
		return "", false
	}
	return role, true
}

// recordAudit appends an audit event, logging instead of failing the request
// when the audit log is unavailable.
func recordAudit(ctx context.Context, sink AuditSink, eventType string, payload map[string]any) {
	if sink == nil {
		return
	}
	if _, err := sink.Append(eventType, payload); err != nil {
		logger := contextutil.LoggerFromContext(ctx)
		logger.WarnContext(ctx, "failed to append audit event", "event_type", eventType, "error", err)
	}
}
