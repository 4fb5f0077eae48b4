package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/middleware"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// ApiHandler exposes API-permission catalog management.
type ApiHandler struct {
	apis *usecase.ApiService
}

// NewApiHandler constructs an ApiHandler.
func NewApiHandler(apis *usecase.ApiService) *ApiHandler {
	return &ApiHandler{apis: apis}
}

var apiErrorCases = []ErrorCase{
	{Err: usecase.ErrApiNotFound, Status: http.StatusNotFound, Message: "api record not found"},
	{Err: usecase.ErrApiHasChildren, Status: http.StatusConflict, Message: "api record has children"},
	{Err: usecase.ErrApiParentInvalid, Status: http.StatusBadRequest, Message: "invalid parent api record"},
}

func apiInputFromRequest(req ApiRequest, id int64) usecase.ApiInput {
	return usecase.ApiInput{
		ID:       id,
		ParentID: req.ParentID,
		Type:     domain.ApiType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Code:     req.Code,
		Method:   req.Method,
		Path:     req.Path,
		Title:    req.Title,
		Sort:     req.Sort,
	}
}

// Create inserts an API record.
func (h *ApiHandler) Create(c *gin.Context) {
	var req ApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid api payload"))
		return
	}

	id, err := h.apis.Create(c.Request.Context(), middleware.UserIDFrom(c), apiInputFromRequest(req, 0))
	if err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "create api record failed")
		return
	}

	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

// Get returns one API record.
func (h *ApiHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	api, err := h.apis.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "load api record failed")
		return
	}

	c.JSON(http.StatusOK, toApiView(*api))
}

// Tree returns the API catalog as a forest.
func (h *ApiHandler) Tree(c *gin.Context) {
	nodes, err := h.apis.Tree(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "load api tree failed")
		return
	}

	c.JSON(http.StatusOK, toApiNodeViews(nodes))
}

// Flat returns every API record in display order.
func (h *ApiHandler) Flat(c *gin.Context) {
	apis, err := h.apis.Flat(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "load api records failed")
		return
	}

	views := make([]ApiView, 0, len(apis))
	for _, api := range apis {
		views = append(views, toApiView(api))
	}

	c.JSON(http.StatusOK, views)
}

// Permissions returns the leaf API records that carry a permission code.
func (h *ApiHandler) Permissions(c *gin.Context) {
	apis, err := h.apis.Permissions(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "load api permissions failed")
		return
	}

	views := make([]ApiView, 0, len(apis))
	for _, api := range apis {
		views = append(views, toApiView(api))
	}

	c.JSON(http.StatusOK, views)
}

// Update modifies an API record.
func (h *ApiHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req ApiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid api payload"))
		return
	}

	if err := h.apis.Update(c.Request.Context(), middleware.UserIDFrom(c), apiInputFromRequest(req, id)); err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "update api record failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "api record updated"})
}

// Delete removes a leaf API record.
func (h *ApiHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.apis.Delete(c.Request.Context(), middleware.UserIDFrom(c), id); err != nil {
		RespondWithMappedError(c, err, apiErrorCases, http.StatusInternalServerError, "delete api record failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "api record deleted"})
}
