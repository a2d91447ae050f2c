package handlers

import (
	"net/http"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List serves GET /api/notifications?unread=true&grouped=true&limit=
func (h *NotificationHandler) List(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	notifications, err := h.notifications.List(ctx, user.ID, c.Query("unread") == "true", queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("grouped") == "true" {
		c.JSON(http.StatusOK, gin.H{"groups": services.Aggregate(notifications), "unread_count": unread})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread_count": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
