package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"growjournal/internal/middleware"
	"growjournal/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type AuthHandler struct {
	auth    *services.AuthService
	tokens  *services.TokenService
	oauth   *oauth2.Config
	siteURL string

	userInfoURL string
}

func NewAuthHandler(auth *services.AuthService, tokens *services.TokenService, oauth *oauth2.Config, siteURL string) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		tokens:      tokens,
		oauth:       oauth,
		siteURL:     strings.TrimRight(siteURL, "/"),
		userInfoURL: googleUserInfoURL,
	}
}

// redirectWithError sends the browser back to the client sign-in page.
func (h *AuthHandler) redirectWithError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.siteURL+"/login?error="+url.QueryEscape(reason))
}

func (h *AuthHandler) signIn(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, userID)
	return session.Save()
}

// RequestEmail mails a magic sign-in link.
func (h *AuthHandler) RequestEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	if err := h.auth.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// EmailCallback consumes a magic link, starts a session and redirects to the site.
func (h *AuthHandler) EmailCallback(c *gin.Context) {
	user, err := h.auth.VerifyMagicLink(c.Request.Context(), c.Query("email"), c.Query("token"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			h.redirectWithError(c, "invalid_token")
			return
		}
		log.WithError(err).Error("magic link verification failed")
		h.redirectWithError(c, "server_error")
		return
	}
	if err := h.signIn(c, user.ID); err != nil {
		log.WithError(err).Error("save session failed")
		h.redirectWithError(c, "server_error")
		return
	}
	log.WithField("user_id", user.ID).Info("signed in with email")
	c.Redirect(http.StatusFound, h.siteURL+"/")
}

// Session reports the signed-in user, or null.
func (h *AuthHandler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Token issues a bearer token for API clients that cannot keep a cookie.
func (h *AuthHandler) Token(c *gin.Context) {
	token, expires, err := h.tokens.Issue(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}
