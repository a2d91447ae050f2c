package handlers

import (
	"net/http"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

type ResolveHandler struct {
	resolver *services.URLResolver
}

func NewResolveHandler(resolver *services.URLResolver) *ResolveHandler {
	return &ResolveHandler{resolver: resolver}
}

// AmazonURL expands an Amazon short link to its final product URL.
func (h *ResolveHandler) AmazonURL(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		badRequest(c, "url is required")
		return
	}
	resolved, err := h.resolver.Resolve(c.Request.Context(), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": resolved})
}
