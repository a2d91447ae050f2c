package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"size:50;not null" json:"name"`
	Email           string     `gorm:"uniqueIndex;not null" json:"-"`
	EmailVerifiedAt *time.Time `json:"-"`
	Image           string     `json:"image"`                                       // avatar URL
	Role            string     `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	GoogleID        string     `gorm:"index" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// VerificationToken backs email magic-link sign in. The secret itself is never stored.
type VerificationToken struct {
	ID         uint      `gorm:"primaryKey"`
	Identifier string    `gorm:"uniqueIndex;not null"` // email
	TokenHash  string    `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time
}
