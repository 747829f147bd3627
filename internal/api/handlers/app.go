package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/service"
)

// AppHandler serves app endpoints.
type AppHandler struct {
	svc *service.AppService
}

// NewAppHandler creates a new AppHandler.
func NewAppHandler(svc *service.AppService) *AppHandler {
	return &AppHandler{svc: svc}
}

// ListApps godoc
// @Summary List apps in the credential's workspace
// @Tags apps
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.App
// @Failure 401 {object} ErrorResponse
// @Router /apps [get]
func (h *AppHandler) ListApps(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	apps, err := h.svc.List(c.Request.Context(), scope)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// CreateApp godoc
// @Summary Create an app
// @Tags apps
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app body service.CreateAppRequest true "App details"
// @Success 201 {object} models.App
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /apps [post]
func (h *AppHandler) CreateApp(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.CreateAppRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.svc.Create(c.Request.Context(), scope, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// GetApp godoc
// @Summary Get an app by slug
// @Tags apps
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Success 200 {object} models.App
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app} [get]
func (h *AppHandler) GetApp(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	app, err := h.svc.Get(c.Request.Context(), scope, c.Param("app"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// DeleteApp godoc
// @Summary Delete an app with all its templates and blueprints
// @Tags apps
// @Security BearerAuth
// @Param app path string true "App slug"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app} [delete]
func (h *AppHandler) DeleteApp(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), scope, c.Param("app")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
