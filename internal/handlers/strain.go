package handlers

import (
	"net/http"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

type StrainHandler struct {
	strains *services.StrainService
}

func NewStrainHandler(strains *services.StrainService) *StrainHandler {
	return &StrainHandler{strains: strains}
}

func (h *StrainHandler) List(c *gin.Context) {
	strains, err := h.strains.Search(c.Request.Context(), c.Query("q"), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strains": strains})
}

func (h *StrainHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	strain, err := h.strains.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

// Create is admin only.
func (h *StrainHandler) Create(c *gin.Context) {
	var in services.StrainInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	strain, err := h.strains.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, strain)
}
