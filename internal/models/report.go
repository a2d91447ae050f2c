package models

import (
	"time"
)

type Environment string

const (
	EnvironmentIndoor     Environment = "indoor"
	EnvironmentOutdoor    Environment = "outdoor"
	EnvironmentGreenhouse Environment = "greenhouse"
)

func (e Environment) Valid() bool {
	switch e {
	case EnvironmentIndoor, EnvironmentOutdoor, EnvironmentGreenhouse:
		return true
	}
	return false
}

// Report is a grow report: the journal of one cultivation cycle.
type Report struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	AuthorID     uint        `gorm:"not null;index" json:"author_id"`
	Author       User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Title        string      `gorm:"size:120;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	Environment  Environment `gorm:"type:varchar(20);not null;default:'indoor'" json:"environment"`
	StartDate    time.Time   `gorm:"not null" json:"start_date"` // grow day 1
	CoverImageID *uint       `json:"cover_image_id"`
	Strains      []Strain    `gorm:"many2many:report_strains;" json:"strains"`
	Posts        []Post      `gorm:"constraint:OnDelete:CASCADE;" json:"posts,omitempty"`

	// Denormalised counters, refreshed by the stats worker.
	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`
	PostCount    int `gorm:"default:0" json:"post_count"`
	Score        int `gorm:"default:0;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"` // newest activity, including post dates

	CoverURL string `gorm:"-" json:"cover_url"`
}
