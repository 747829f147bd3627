package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/audit"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/service"
	"gorm.io/gorm"
)

// TokenHandler issues credentials for the caller's workspace.
type TokenHandler struct {
	db     *gorm.DB
	issuer *auth.TokenIssuer
	apps   *service.AppService
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(db *gorm.DB, issuer *auth.TokenIssuer, apps *service.AppService) *TokenHandler {
	return &TokenHandler{db: db, issuer: issuer, apps: apps}
}

// IssueTokenRequest describes the credential to mint.
type IssueTokenRequest struct {
	Role     string `json:"role" example:"viewer"`
	App      string `json:"app,omitempty"` // App slug to restrict the credential to
	TTLHours int    `json:"ttl_hours,omitempty"`
}

// IssueTokenResponse carries the new bearer token.
type IssueTokenResponse struct {
	Token      string           `json:"token"`
	Credential *auth.Credential `json:"credential"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// IssueToken godoc
// @Summary Issue a credential for the caller's workspace
// @Description The new credential inherits the caller's plan and can be no broader than the caller's app scope.
// @Tags tokens
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body IssueTokenRequest true "Credential details"
// @Success 201 {object} IssueTokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tokens [post]
func (h *TokenHandler) IssueToken(c *gin.Context) {
	caller, err := auth.GetCredential(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing credential")
		return
	}

	var req IssueTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Role != "" && !auth.ValidRole(req.Role) {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "role must be one of viewer, editor, admin")
		return
	}
	if req.TTLHours < 0 {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "ttl_hours must not be negative")
		return
	}

	appID := caller.AppID
	if req.App != "" {
		app, err := h.apps.Get(c.Request.Context(), service.Scope{
			WorkspaceID: caller.WorkspaceID,
			AppID:       caller.AppID,
			Actor:       caller.ID,
		}, req.App)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		appID = app.ID
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	if ttl == 0 {
		ttl = auth.DefaultTokenDuration
	}
	token, cred, err := h.issuer.Issue(auth.IssueRequest{
		WorkspaceID: caller.WorkspaceID,
		AppID:       appID,
		Plan:        caller.Plan,
		Role:        req.Role,
		TTL:         ttl,
	})
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "failed to issue token")
		return
	}

	audit.LogAction(h.db, caller.WorkspaceID, caller.ID, audit.ActionIssueToken, fmt.Sprintf("credential:%s", cred.ID), map[string]interface{}{
		"role":   cred.Role,
		"app_id": uuidOrEmpty(cred.AppID),
	})

	c.JSON(http.StatusCreated, IssueTokenResponse{
		Token:      token,
		Credential: cred,
		ExpiresAt:  time.Now().Add(ttl),
	})
}

func uuidOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
