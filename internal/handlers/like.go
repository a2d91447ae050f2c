package handlers

import (
	"net/http"

	"growjournal/internal/models"
	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	likes *services.LikeService
}

func NewLikeHandler(likes *services.LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// Toggle likes or unlikes /api/likes/:type/:id where type is report, post or comment.
func (h *LikeHandler) Toggle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	target := models.Target{Type: models.TargetType(c.Param("type")), ID: id}
	if !target.Valid() {
		badRequest(c, "unknown like target")
		return
	}

	res, err := h.likes.Toggle(c.Request.Context(), currentUser(c).ID, target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
