package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/audit"
	"github.com/nebari-dev/refstore/internal/auth"
	"gorm.io/gorm"
)

// AuditHandler lists management audit logs.
type AuditHandler struct {
	db *gorm.DB
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// ListAuditLogs godoc
// @Summary List audit logs of the caller's workspace
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param action query string false "Filter by action, e.g. promote_template_version"
// @Param limit query int false "Maximum entries (default and cap 500)"
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} ErrorResponse
// @Router /audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	cred, err := auth.GetCredential(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing credential")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeValidation, "limit must be a non-negative integer")
			return
		}
	}

	logs, err := audit.List(c.Request.Context(), h.db, cred.WorkspaceID, c.Query("action"), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
