package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sunhaoxiang/pure-admin-service/internal/usecase"
)

// CacheAdminHandler exposes cache introspection and manual invalidation.
type CacheAdminHandler struct {
	cache *usecase.CacheService
}

// NewCacheAdminHandler constructs a CacheAdminHandler.
func NewCacheAdminHandler(cache *usecase.CacheService) *CacheAdminHandler {
	return &CacheAdminHandler{cache: cache}
}

// Stats reports key count and memory usage for the cache namespace.
func (h *CacheAdminHandler) Stats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "load cache stats failed"))
		return
	}

	c.JSON(http.StatusOK, CacheStatsResponse{
		TotalKeys:   stats.TotalKeys,
		MemoryUsage: stats.MemoryUsage,
	})
}

// Keys lists cached keys, optionally narrowed to a prefix.
func (h *CacheAdminHandler) Keys(c *gin.Context) {
	keys, err := h.cache.Keys(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list cache keys failed"))
		return
	}

	c.JSON(http.StatusOK, CacheKeysResponse{Keys: keys, Total: len(keys)})
}

// Clear evicts a prefix, or the whole namespace when the prefix is empty.
func (h *CacheAdminHandler) Clear(c *gin.Context) {
	var req CacheClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid cache clear payload"))
		return
	}

	removed, err := h.cache.Clear(c.Request.Context(), req.Prefix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "clear cache failed"))
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: removed})
}
