package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/resolve"
)

// ResolveHandler serves POST /resolve.
type ResolveHandler struct {
	resolver *resolve.Resolver
}

// NewResolveHandler creates a new ResolveHandler.
func NewResolveHandler(r *resolve.Resolver) *ResolveHandler {
	return &ResolveHandler{resolver: r}
}

// ResolveOptions tune the resolve response.
type ResolveOptions struct {
	IncludeMetadata bool `json:"include_metadata"`
}

// ResolveRequest is the body of POST /resolve.
type ResolveRequest struct {
	Ref     string            `json:"ref" example:"myapp/greet@stable"`
	Params  map[string]string `json:"params"`
	Options *ResolveOptions   `json:"options"`
}

// Resolve godoc
// @Summary Resolve a reference into text
// @Description Resolves app/entity[@tag] and substitutes params. Send the ETag of a previous response in If-None-Match to get 304 when the text is unchanged.
// @Tags resolve
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body ResolveRequest true "Reference and parameters"
// @Param If-None-Match header string false "ETag of a cached response"
// @Success 200 {object} resolve.Response
// @Success 304 "Not modified"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /resolve [post]
func (h *ResolveHandler) Resolve(c *gin.Context) {
	cred, err := auth.GetCredential(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing credential")
		return
	}

	var body ResolveRequest
	if !bindJSON(c, &body) {
		return
	}

	req := resolve.Request{
		Ref:         body.Ref,
		Params:      body.Params,
		IfNoneMatch: c.GetHeader("If-None-Match"),
	}
	if body.Options != nil {
		req.IncludeMetadata = body.Options.IncludeMetadata
	}

	resp, err := h.resolver.Resolve(c.Request.Context(), resolve.Caller{
		WorkspaceID:  cred.WorkspaceID,
		AppID:        cred.AppID,
		CredentialID: cred.ID,
	}, req)
	if err != nil {
		var rerr *resolve.Error
		if !errors.As(err, &rerr) {
			rerr = &resolve.Error{Code: resolve.CodeInternal, Message: "internal error", Err: err}
		}
		if rerr.Code == resolve.CodeInternal {
			slog.Error("Resolve failed", "error", err, "ref", body.Ref, "request_id", c.GetString(response.RequestIDKey))
		}
		response.Error(c, rerr.Code.HTTPStatus(), string(rerr.Code), rerr.Message)
		return
	}

	c.Header("ETag", resp.ETag)
	c.Header("Cache-Control", "private, no-cache")
	if resp.NotModified {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, resp)
}
