package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"growjournal/internal/config"
	"growjournal/internal/middleware"
	"growjournal/internal/services"
	"growjournal/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateKey     = "oauth_state"
)

// NewGoogleOAuthConfig returns nil when Google sign in is not configured.
func NewGoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	if cfg.Auth.GoogleClientID == "" || cfg.Auth.GoogleClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.Auth.GoogleClientID,
		ClientSecret: cfg.Auth.GoogleClientSecret,
		RedirectURL:  cfg.Server.SiteURL + "/api/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleLogin starts the OAuth flow, keeping the state in the session.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google sign in is not enabled"})
		return
	}
	state, err := utils.RandomToken(32)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.oauth == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google sign in is not enabled"})
		return
	}

	session := sessions.Default(c)
	saved, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	if saved == "" || c.Query("state") != saved {
		_ = session.Save()
		h.redirectWithError(c, "invalid_state")
		return
	}

	code := c.Query("code")
	if code == "" {
		_ = session.Save()
		h.redirectWithError(c, "missing_code")
		return
	}

	ctx := c.Request.Context()
	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		log.WithError(err).Warn("google token exchange failed")
		_ = session.Save()
		h.redirectWithError(c, "exchange_failed")
		return
	}

	profile, err := h.fetchGoogleProfile(h.oauth.Client(ctx, token))
	if err != nil {
		log.WithError(err).Warn("google userinfo failed")
		_ = session.Save()
		h.redirectWithError(c, "userinfo_failed")
		return
	}

	user, err := h.auth.SignInWithGoogle(ctx, profile)
	if err != nil {
		log.WithError(err).WithField("google_id", profile.ID).Warn("google sign in rejected")
		_ = session.Save()
		h.redirectWithError(c, "signin_failed")
		return
	}

	session.Set(middleware.SessionUserID, user.ID)
	if err := session.Save(); err != nil {
		log.WithError(err).Error("save session failed")
		h.redirectWithError(c, "server_error")
		return
	}
	log.WithField("user_id", user.ID).Info("signed in with google")
	c.Redirect(http.StatusFound, h.siteURL+"/")
}

func (h *AuthHandler) fetchGoogleProfile(client *http.Client) (*services.GoogleProfile, error) {
	resp, err := client.Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var profile services.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
