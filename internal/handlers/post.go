package handlers

import (
	"net/http"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts  *services.PostService
	images *services.ImageService
}

func NewPostHandler(posts *services.PostService, images *services.ImageService) *PostHandler {
	return &PostHandler{posts: posts, images: images}
}

func (h *PostHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	post, err := h.posts.Get(c.Request.Context(), id, viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Create adds a dated update to the report in the path.
func (h *PostHandler) Create(c *gin.Context) {
	reportID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	post, err := h.posts.Create(c.Request.Context(), currentUser(c), reportID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	post, err := h.posts.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	publicIDs, err := h.posts.Delete(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.images.DestroyAsync(publicIDs)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
