package handlers

import (
	"net/http"

	"protocol-navigator/internal/audit"
	"protocol-navigator/internal/security"
)

// AuditVerifier checks the integrity of the audit log hash chain.
type AuditVerifier interface {
	Verify() audit.VerifyResult
}

// AuditHandler exposes audit log verification.
type AuditHandler struct {
	verifier   AuditVerifier
	auth       *security.Authorizer
	roleHeader string
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(verifier AuditVerifier, auth *security.Authorizer, roleHeader string) *AuditHandler {
	return &AuditHandler{
		verifier:   verifier,
		auth:       auth,
		roleHeader: roleHeader,
	}
}

// Verify handles GET /api/audit/verify. It walks the hash chain and reports
// the first break if the log has been tampered with.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := authorize(w, r, h.auth, h.roleHeader, security.PermAdmin); !ok {
		return
	}

	writeJSON(ctx, w, http.StatusOK, h.verifier.Verify())
}
