package handlers

import (
	"net/http"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List returns the threaded comments of a post.
func (h *CommentHandler) List(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := h.comments.ListByPost(c.Request.Context(), postID, viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *CommentHandler) Create(c *gin.Context) {
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.CommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), currentUser(c), postID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
