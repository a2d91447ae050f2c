package handlers

import (
	"errors"
	"net/http"

	"growjournal/internal/middleware"
	"growjournal/internal/models"
	"growjournal/internal/services"
	"growjournal/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps service errors onto HTTP statuses. Anything unrecognised is logged
// and reported as a bare 500.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
	case errors.Is(err, services.ErrTooManyRedirects):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithFields(log.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(middleware.RequestIDKey),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramID parses a positive numeric path parameter, answering 400 when it is not one.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		badRequest(c, "invalid "+name)
	}
	return id, ok
}

// queryUint is 0 when the parameter is absent or malformed.
func queryUint(c *gin.Context, name string) uint {
	id, _ := utils.ParseID(c.Query(name))
	return id
}

func queryInt(c *gin.Context, name string, def int) int {
	if v := utils.StringToInt(c.Query(name)); v > 0 {
		return v
	}
	return def
}

// currentUser is only valid behind AuthRequired.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// viewerID is 0 for anonymous callers.
func viewerID(c *gin.Context) uint {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}
