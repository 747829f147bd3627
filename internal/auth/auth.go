package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// CredentialContextKey is the key used to store the credential in Gin context
const CredentialContextKey = "credential"

// Roles, from least to most privileged
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Credential is a verified API credential. Workspaces are owned by the
// issuer; the service only trusts the ids the credential carries.
type Credential struct {
	ID          string    `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	AppID       uuid.UUID `json:"app_id,omitempty"` // uuid.Nil unless app-scoped
	Plan        string    `json:"plan"`
	Role        string    `json:"role"`
}

// AppScoped reports whether the credential is limited to one app.
func (c *Credential) AppScoped() bool {
	return c.AppID != uuid.Nil
}

// CredentialResolver verifies a bearer token.
type CredentialResolver interface {
	Resolve(token string) (*Credential, error)
}

// GetCredential extracts the authenticated credential from the Gin context
func GetCredential(c *gin.Context) (*Credential, error) {
	value, exists := c.Get(CredentialContextKey)
	if !exists {
		return nil, ErrUnauthorized
	}

	cred, ok := value.(*Credential)
	if !ok {
		return nil, errors.New("invalid credential in context")
	}
	return cred, nil
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	switch role {
	case RoleViewer, RoleEditor, RoleAdmin:
		return true
	}
	return false
}
