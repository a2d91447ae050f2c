package models

import (
	"time"
)

type GrowStage string

const (
	StagePreparation GrowStage = "preparation"
	StageGermination GrowStage = "germination"
	StageSeedling    GrowStage = "seedling"
	StageVegetative  GrowStage = "vegetative"
	StageFlowering   GrowStage = "flowering"
	StageHarvest     GrowStage = "harvest"
	StageCuring      GrowStage = "curing"
)

var GrowStages = []GrowStage{
	StagePreparation, StageGermination, StageSeedling, StageVegetative,
	StageFlowering, StageHarvest, StageCuring,
}

func (s GrowStage) Valid() bool {
	for _, g := range GrowStages {
		if g == s {
			return true
		}
	}
	return false
}

// Post is a dated update inside a grow report.
type Post struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ReportID         uint      `gorm:"not null;index" json:"report_id"`
	AuthorID         uint      `gorm:"not null;index" json:"author_id"`
	Author           User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Date             time.Time `gorm:"not null;index" json:"date"`
	Title            string    `gorm:"size:120" json:"title"`
	Content          string    `gorm:"type:text" json:"content"`
	GrowStage        GrowStage `gorm:"type:varchar(20);not null" json:"grow_stage"`
	LightHoursPerDay *int      `json:"light_hours_per_day"`
	Images           []Image   `gorm:"constraint:OnDelete:SET NULL;" json:"images"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// 非数据库字段，查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
	LikeCount    int `gorm:"-" json:"like_count"`
}
