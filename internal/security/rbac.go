// Package security implements header-based role authorization for the API.
package security

import (
	"fmt"
	"strings"
)

// Permissions understood by the authorizer.
const (
	PermRead   = "read"
	PermQuery  = "query"
	PermIngest = "ingest"
	PermAdmin  = "admin"
)

// rolePermissions maps each role to the permissions it grants. A role holding
// admin implicitly passes every check.
var rolePermissions = map[string]map[string]struct{}{
	"viewer":   {PermRead: {}},
	"analyst":  {PermRead: {}, PermQuery: {}},
	"ingestor": {PermRead: {}, PermIngest: {}},
	"admin":    {PermRead: {}, PermQuery: {}, PermIngest: {}, PermAdmin: {}},
}

// Authorizer checks request roles against required permissions. When disabled
// it allows everything and reports the role as "rbac_disabled".
type Authorizer struct {
	enabled     bool
	defaultRole string
}

// NewAuthorizer creates an authorizer. defaultRole applies when a request
// carries no role header.
func NewAuthorizer(enabled bool, defaultRole string) *Authorizer {
	return &Authorizer{enabled: enabled, defaultRole: defaultRole}
}

// Ensure checks that roleValue grants permission and returns the effective
// role. The error message is safe to surface in a 403 response.
func (a *Authorizer) Ensure(permission, roleValue string) (string, error) {
	if !a.enabled {
		if roleValue == "" {
			return "rbac_disabled", nil
		}
		return roleValue, nil
	}

	role := strings.ToLower(strings.TrimSpace(roleValue))
	if role == "" {
		role = a.defaultRole
	}

	perms, known := rolePermissions[role]
	if !known {
		return "", fmt.Errorf("unknown role: %s", role)
	}

	if _, ok := perms[permission]; ok {
		return role, nil
	}
	if _, isAdmin := perms[PermAdmin]; isAdmin {
		return role, nil
	}
	return "", fmt.Errorf("role %q lacks permission %q", role, permission)
}
