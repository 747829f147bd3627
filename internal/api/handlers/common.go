package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/service"
)

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse = response.ErrorResponse

// handleServiceError maps service-layer errors to HTTP status codes.
func handleServiceError(c *gin.Context, err error) {
	var notFoundErr *service.NotFoundError
	if errors.As(err, &notFoundErr) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, notFoundErr.Error())
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Not found")
		return
	}
	if errors.Is(err, service.ErrForbidden) {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		return
	}
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, validationErr.Message)
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		response.Error(c, http.StatusConflict, response.CodeConflict, conflictErr.Message)
		return
	}
	slog.Error("unhandled service error", "error", err, "request_id", c.GetString(response.RequestIDKey))
	response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
}

// bindJSON decodes the body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// scopeFrom turns the authenticated credential into a service scope.
func scopeFrom(c *gin.Context) (service.Scope, bool) {
	cred, err := auth.GetCredential(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing credential")
		return service.Scope{}, false
	}
	return service.Scope{WorkspaceID: cred.WorkspaceID, AppID: cred.AppID, Actor: cred.ID}, true
}

// versionParam reads a version number path parameter, accepting "3" or "v3".
func versionParam(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimPrefix(c.Param(name), "v")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, name+" must be a positive version number")
		return 0, false
	}
	return n, true
}

// versionQuery reads a required version number query parameter.
func versionQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimPrefix(c.Query(name), "v")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, name+" must be a positive version number")
		return 0, false
	}
	return n, true
}
