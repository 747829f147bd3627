package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/service"
)

// TemplateHandler serves template and template version endpoints.
type TemplateHandler struct {
	svc *service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// CreateTemplateResponse is a new template and, when content was given, its
// first version.
type CreateTemplateResponse struct {
	models.Template
	Version *models.TemplateVersion `json:"version,omitempty"`
}

// ListTemplates godoc
// @Summary List templates of an app
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Success 200 {array} models.Template
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	templates, err := h.svc.List(c.Request.Context(), scope, c.Param("app"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// CreateTemplate godoc
// @Summary Create a template
// @Description Creates a template. When content is given it is saved as version 1.
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param template body service.CreateTemplateRequest true "Template details"
// @Success 201 {object} CreateTemplateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /apps/{app}/templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.CreateTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	tmpl, v1, err := h.svc.Create(c.Request.Context(), scope, c.Param("app"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateTemplateResponse{Template: *tmpl, Version: v1})
}

// GetTemplate godoc
// @Summary Get a template
// @Tags templates
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Success 200 {object} models.Template
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	tmpl, err := h.svc.Get(c.Request.Context(), scope, c.Param("app"), c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// UpdateTemplate godoc
// @Summary Update a template's name, description or model hint
// @Tags templates
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Param template body service.UpdateEntityRequest true "Fields to change"
// @Success 200 {object} models.Template
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug} [patch]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.UpdateEntityRequest
	if !bindJSON(c, &req) {
		return
	}
	tmpl, err := h.svc.Update(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// DeleteTemplate godoc
// @Summary Delete a template and its versions
// @Tags templates
// @Security BearerAuth
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), scope, c.Param("app"), c.Param("slug")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListVersions godoc
// @Summary List template versions, newest first
// @Tags template-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Success 200 {array} models.TemplateVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug}/versions [get]
func (h *TemplateHandler) ListVersions(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	versions, err := h.svc.ListVersions(c.Request.Context(), scope, c.Param("app"), c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// CreateVersion godoc
// @Summary Save a new template version
// @Tags template-versions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Param version body service.CreateVersionRequest true "Version content"
// @Success 201 {object} models.TemplateVersion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug}/versions [post]
func (h *TemplateHandler) CreateVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.CreateVersionRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.CreateVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// GetVersion godoc
// @Summary Get a template version by number
// @Tags template-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Param version path string true "Version number, e.g. 3 or v3"
// @Success 200 {object} models.TemplateVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug}/versions/{version} [get]
func (h *TemplateHandler) GetVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	n, ok := versionParam(c, "version")
	if !ok {
		return
	}
	v, err := h.svc.GetVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), n)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// PromoteVersion godoc
// @Summary Promote a template version to a status
// @Description The previous holder of the status, if any, is demoted to draft.
// @Tags template-versions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Param version path string true "Version number"
// @Param promotion body service.PromoteRequest true "Target status"
// @Success 200 {object} models.TemplateVersion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug}/versions/{version}/promote [post]
func (h *TemplateHandler) PromoteVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	n, ok := versionParam(c, "version")
	if !ok {
		return
	}
	var req service.PromoteRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.PromoteVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), n, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// RestoreVersion godoc
// @Summary Restore a template version as a new draft version
// @Tags template-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Template slug"
// @Param version path string true "Version number to copy"
// @Success 201 {object} models.TemplateVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/templates/{slug}/versions/{version}/restore [post]
func (h *TemplateHandler) RestoreVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	n, ok := versionParam(c, "version")
	if !ok {
		return
	}
	v, err := h.svc.RestoreVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), n)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}
