package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/transport/http/middleware"
	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// MenuHandler exposes navigation-tree management.
type MenuHandler struct {
	menus *usecase.MenuService
}

// NewMenuHandler constructs a MenuHandler.
func NewMenuHandler(menus *usecase.MenuService) *MenuHandler {
	return &MenuHandler{menus: menus}
}

var menuErrorCases = []ErrorCase{
	{Err: usecase.ErrMenuNotFound, Status: http.StatusNotFound, Message: "menu not found"},
	{Err: usecase.ErrMenuHasChildren, Status: http.StatusConflict, Message: "menu has children"},
	{Err: usecase.ErrMenuParentInvalid, Status: http.StatusBadRequest, Message: "invalid parent menu"},
}

func menuInputFromRequest(req MenuRequest, id int64) usecase.MenuInput {
	return usecase.MenuInput{
		ID:        id,
		ParentID:  req.ParentID,
		Type:      domain.MenuType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Code:      req.Code,
		Title:     req.Title,
		Icon:      req.Icon,
		Path:      req.Path,
		Component: req.Component,
		Sort:      req.Sort,
		Hidden:    req.Hidden,
	}
}

// Create inserts a menu node.
func (h *MenuHandler) Create(c *gin.Context) {
	var req MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid menu payload"))
		return
	}

	id, err := h.menus.Create(c.Request.Context(), middleware.UserIDFrom(c), menuInputFromRequest(req, 0))
	if err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "create menu failed")
		return
	}

	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

// Get returns one menu node.
func (h *MenuHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	menu, err := h.menus.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "load menu failed")
		return
	}

	c.JSON(http.StatusOK, toMenuView(*menu))
}

// Tree returns the full menu forest.
func (h *MenuHandler) Tree(c *gin.Context) {
	nodes, err := h.menus.Tree(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "load menu tree failed")
		return
	}

	c.JSON(http.StatusOK, toMenuNodeViews(nodes))
}

// Flat returns every menu row in display order.
func (h *MenuHandler) Flat(c *gin.Context) {
	menus, err := h.menus.Flat(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "load menus failed")
		return
	}

	views := make([]MenuView, 0, len(menus))
	for _, menu := range menus {
		views = append(views, toMenuView(menu))
	}

	c.JSON(http.StatusOK, views)
}

// PermissionCodes returns the distinct permission codes carried by menu and
// feature rows. The type query parameter narrows the node types included.
func (h *MenuHandler) PermissionCodes(c *gin.Context) {
	types := []domain.MenuType{domain.MenuTypeMenu, domain.MenuTypeFeature}
	if raw := c.Query("type"); raw != "" {
		types = types[:0]
		for _, value := range strings.Split(raw, ",") {
			types = append(types, domain.MenuType(strings.ToUpper(strings.TrimSpace(value))))
		}
	}

	codes, err := h.menus.PermissionCodes(c.Request.Context(), types)
	if err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "load permission codes failed")
		return
	}

	c.JSON(http.StatusOK, codes)
}

// Update modifies a menu node.
func (h *MenuHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req MenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid menu payload"))
		return
	}

	if err := h.menus.Update(c.Request.Context(), middleware.UserIDFrom(c), menuInputFromRequest(req, id)); err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "update menu failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "menu updated"})
}

// Delete removes a leaf menu node.
func (h *MenuHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.menus.Delete(c.Request.Context(), middleware.UserIDFrom(c), id); err != nil {
		RespondWithMappedError(c, err, menuErrorCases, http.StatusInternalServerError, "delete menu failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "menu deleted"})
}
