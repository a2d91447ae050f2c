package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"
	"growjournal/internal/utils"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	magicLinkTTL   = 24 * time.Hour
	magicLinkBytes = 32
)

// GoogleProfile is the subset of the Google userinfo response used for sign in.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

type AuthService struct {
	mailer  Mailer
	siteURL string
	now     func() time.Time
}

func NewAuthService(mailer Mailer, siteURL string) *AuthService {
	return &AuthService{mailer: mailer, siteURL: strings.TrimRight(siteURL, "/"), now: time.Now}
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", invalidf("invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}

// RequestMagicLink replaces any pending token for the address and mails a sign-in link.
// Only a bcrypt hash of the secret is stored.
func (s *AuthService) RequestMagicLink(ctx context.Context, rawEmail string) error {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return err
	}
	secret, err := utils.RandomToken(magicLinkBytes)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identifier = ?", email).Delete(&models.VerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.VerificationToken{
			Identifier: email,
			TokenHash:  string(hash),
			ExpiresAt:  s.now().Add(magicLinkTTL),
		}).Error
	})
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/api/auth/email/callback?email=%s&token=%s",
		s.siteURL, url.QueryEscape(email), url.QueryEscape(secret))
	if s.mailer != nil {
		s.mailer.SendMagicLink(email, link)
	}
	log.WithField("email", email).Info("magic link requested")
	return nil
}

// VerifyMagicLink consumes the token and returns the signed-in user, creating the
// account on first sign in.
func (s *AuthService) VerifyMagicLink(ctx context.Context, rawEmail, secret string) (*models.User, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil || secret == "" {
		return nil, ErrInvalidToken
	}

	var user models.User
	err = db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token models.VerificationToken
		if err := tx.Where("identifier = ?", email).First(&token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if s.now().After(token.ExpiresAt) {
			return ErrInvalidToken
		}
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(secret)) != nil {
			return ErrInvalidToken
		}
		if err := tx.Delete(&token).Error; err != nil {
			return err
		}

		verified := s.now().UTC()
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			if user.EmailVerifiedAt == nil {
				user.EmailVerifiedAt = &verified
				return tx.Model(&user).Update("email_verified_at", verified).Error
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Name:            nameFromEmail(email),
				Email:           email,
				EmailVerifiedAt: &verified,
				Role:            models.RoleUser,
			}
			return tx.Create(&user).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func nameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	if r := []rune(local); len(r) > 50 {
		local = string(r[:50])
	}
	return local
}

// SignInWithGoogle links the Google account by google_id, then by verified email,
// and otherwise registers a new user.
func (s *AuthService) SignInWithGoogle(ctx context.Context, p *GoogleProfile) (*models.User, error) {
	if p.ID == "" {
		return nil, invalidf("missing google account id")
	}
	if !p.VerifiedEmail {
		return nil, invalidf("google email is not verified")
	}
	email, err := NormalizeEmail(p.Email)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", p.ID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.now().UTC()
		err = tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			updates := map[string]interface{}{"google_id": p.ID}
			if user.EmailVerifiedAt == nil {
				updates["email_verified_at"] = now
			}
			if user.Image == "" && p.Picture != "" {
				updates["image"] = p.Picture
			}
			return tx.Model(&user).Updates(updates).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		name := p.Name
		if name == "" {
			name = p.GivenName
		}
		if name == "" {
			name = nameFromEmail(email)
		}
		if r := []rune(name); len(r) > 50 {
			name = string(r[:50])
		}
		user = models.User{
			Name:            name,
			Email:           email,
			EmailVerifiedAt: &now,
			Image:           p.Picture,
			GoogleID:        p.ID,
			Role:            models.RoleUser,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
