package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/service"
)

// BlueprintHandler serves blueprint, block and version endpoints.
type BlueprintHandler struct {
	svc *service.BlueprintService
}

// NewBlueprintHandler creates a new BlueprintHandler.
func NewBlueprintHandler(svc *service.BlueprintService) *BlueprintHandler {
	return &BlueprintHandler{svc: svc}
}

// CreateBlockResponse is a new block and, when content was given, its first
// version.
type CreateBlockResponse struct {
	models.Block
	Version *models.BlockVersion `json:"version,omitempty"`
}

// ListBlueprints godoc
// @Summary List blueprints of an app
// @Tags blueprints
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Success 200 {array} models.Blueprint
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints [get]
func (h *BlueprintHandler) ListBlueprints(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	bps, err := h.svc.List(c.Request.Context(), scope, c.Param("app"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bps)
}

// CreateBlueprint godoc
// @Summary Create a blueprint
// @Tags blueprints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param blueprint body service.CreateBlueprintRequest true "Blueprint details"
// @Success 201 {object} models.Blueprint
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /apps/{app}/blueprints [post]
func (h *BlueprintHandler) CreateBlueprint(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.CreateBlueprintRequest
	if !bindJSON(c, &req) {
		return
	}
	bp, err := h.svc.Create(c.Request.Context(), scope, c.Param("app"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bp)
}

// GetBlueprint godoc
// @Summary Get a blueprint with its blocks
// @Tags blueprints
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Success 200 {object} models.Blueprint
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug} [get]
func (h *BlueprintHandler) GetBlueprint(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	bp, err := h.svc.Get(c.Request.Context(), scope, c.Param("app"), c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bp)
}

// UpdateBlueprint godoc
// @Summary Update a blueprint's name, description or model hint
// @Tags blueprints
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param blueprint body service.UpdateEntityRequest true "Fields to change"
// @Success 200 {object} models.Blueprint
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug} [patch]
func (h *BlueprintHandler) UpdateBlueprint(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.UpdateEntityRequest
	if !bindJSON(c, &req) {
		return
	}
	bp, err := h.svc.Update(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, bp)
}

// DeleteBlueprint godoc
// @Summary Delete a blueprint with its blocks and versions
// @Tags blueprints
// @Security BearerAuth
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug} [delete]
func (h *BlueprintHandler) DeleteBlueprint(c *gin.Context) {
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

// CreateBlock godoc
// @Summary Add a block to a blueprint
// @Description When content is given it is saved as block version 1.
// @Tags blocks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block body service.CreateBlockRequest true "Block details"
// @Success 201 {object} CreateBlockResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks [post]
func (h *BlueprintHandler) CreateBlock(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.CreateBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	block, v1, err := h.svc.CreateBlock(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateBlockResponse{Block: *block, Version: v1})
}

// UpdateBlock godoc
// @Summary Change a block's type, position or disabled flag
// @Tags blocks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block path string true "Block slug"
// @Param update body service.UpdateBlockRequest true "Fields to change"
// @Success 200 {object} models.Block
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks/{block} [patch]
func (h *BlueprintHandler) UpdateBlock(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.UpdateBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	block, err := h.svc.UpdateBlock(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), c.Param("block"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

// DeleteBlock godoc
// @Summary Delete a block and its versions
// @Description Existing blueprint versions keep their snapshot entries for the block.
// @Tags blocks
// @Security BearerAuth
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block path string true "Block slug"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks/{block} [delete]
func (h *BlueprintHandler) DeleteBlock(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteBlock(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), c.Param("block")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListBlockVersions godoc
// @Summary List block versions, newest first
// @Tags blocks
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block path string true "Block slug"
// @Success 200 {array} models.BlockVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks/{block}/versions [get]
func (h *BlueprintHandler) ListBlockVersions(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	versions, err := h.svc.ListBlockVersions(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), c.Param("block"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// CreateBlockVersion godoc
// @Summary Save a new block version
// @Tags blocks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block path string true "Block slug"
// @Param version body service.CreateBlockVersionRequest true "Version content"
// @Success 201 {object} models.BlockVersion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks/{block}/versions [post]
func (h *BlueprintHandler) CreateBlockVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.CreateBlockVersionRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.svc.CreateBlockVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), c.Param("block"), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// PromoteBlockVersion godoc
// @Summary Promote a block version to a status
// @Tags blocks
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block path string true "Block slug"
// @Param version path string true "Version number"
// @Param promotion body service.PromoteRequest true "Target status"
// @Success 200 {object} models.BlockVersion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks/{block}/versions/{version}/promote [post]
func (h *BlueprintHandler) PromoteBlockVersion(c *gin.Context) {
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
	v, err := h.svc.PromoteBlockVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), c.Param("block"), n, req.Status)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// RestoreBlockVersion godoc
// @Summary Restore a block version as a new draft version
// @Tags blocks
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param block path string true "Block slug"
// @Param version path string true "Version number to copy"
// @Success 201 {object} models.BlockVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/blocks/{block}/versions/{version}/restore [post]
func (h *BlueprintHandler) RestoreBlockVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	n, ok := versionParam(c, "version")
	if !ok {
		return
	}
	v, err := h.svc.RestoreBlockVersion(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), c.Param("block"), n)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// ListVersions godoc
// @Summary List blueprint versions, newest first
// @Tags blueprint-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Success 200 {array} models.BlueprintVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/versions [get]
func (h *BlueprintHandler) ListVersions(c *gin.Context) {
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
// @Summary Snapshot the blueprint's blocks as a new version
// @Description Records each block's latest version number. Blocks without versions are left out.
// @Tags blueprint-versions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param snapshot body service.SnapshotRequest false "Version note"
// @Success 201 {object} models.BlueprintVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/versions [post]
func (h *BlueprintHandler) CreateVersion(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	var req service.SnapshotRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
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
// @Summary Get a blueprint version by number
// @Tags blueprint-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param version path string true "Version number"
// @Success 200 {object} models.BlueprintVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/versions/{version} [get]
func (h *BlueprintHandler) GetVersion(c *gin.Context) {
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
// @Summary Promote a blueprint version to a status
// @Tags blueprint-versions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param version path string true "Version number"
// @Param promotion body service.PromoteRequest true "Target status"
// @Success 200 {object} models.BlueprintVersion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/versions/{version}/promote [post]
func (h *BlueprintHandler) PromoteVersion(c *gin.Context) {
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
// @Summary Restore a blueprint version as a new draft version
// @Description Copies the old snapshot; block versions it names are not touched.
// @Tags blueprint-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param version path string true "Version number to copy"
// @Success 201 {object} models.BlueprintVersion
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/versions/{version}/restore [post]
func (h *BlueprintHandler) RestoreVersion(c *gin.Context) {
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

// Diff godoc
// @Summary Compare two blueprint versions
// @Description Classifies every block in either snapshot as added, removed, changed or unchanged.
// @Tags blueprint-versions
// @Security BearerAuth
// @Produce json
// @Param app path string true "App slug"
// @Param slug path string true "Blueprint slug"
// @Param from query int true "Base version number"
// @Param to query int true "Target version number"
// @Success 200 {array} service.DiffEntry
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /apps/{app}/blueprints/{slug}/diff [get]
func (h *BlueprintHandler) Diff(c *gin.Context) {
	scope, ok := scopeFrom(c)
	if !ok {
		return
	}
	from, ok := versionQuery(c, "from")
	if !ok {
		return
	}
	to, ok := versionQuery(c, "to")
	if !ok {
		return
	}
	entries, err := h.svc.Diff(c.Request.Context(), scope, c.Param("app"), c.Param("slug"), from, to)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
