package middleware

import (
	"net/http"
	"strings"

	"growjournal/internal/db"
	"growjournal/internal/models"
	"growjournal/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey  = "user"
	SessionUserID = "user_id"
)

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(token string) (uint, error)
}

// LoadUser resolves the caller from the session cookie or an Authorization bearer token
// and stores the user in the context. Anonymous requests pass through.
func LoadUser(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") && tokens != nil {
			if id, err := tokens.Parse(strings.TrimPrefix(header, "Bearer ")); err == nil {
				userID = id
			}
		}
		if userID == 0 {
			switch id := sessions.Default(c).Get(SessionUserID).(type) {
			case uint:
				userID = id
			case int:
				userID = uint(id)
			}
		}

		if userID != 0 {
			var user models.User
			if err := db.DB.WithContext(c.Request.Context()).First(&user, userID).Error; err == nil {
				c.Set(CheckUserKey, &user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// AuthRequired rejects anonymous requests.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

var _ TokenParser = (*services.TokenService)(nil)
