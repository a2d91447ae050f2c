package models

import (
	"time"
)

type StrainType string

const (
	StrainIndica     StrainType = "indica"
	StrainSativa     StrainType = "sativa"
	StrainHybrid     StrainType = "hybrid"
	StrainAutoflower StrainType = "autoflower"
)

func (t StrainType) Valid() bool {
	switch t {
	case StrainIndica, StrainSativa, StrainHybrid, StrainAutoflower:
		return true
	}
	return false
}

type Strain struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"not null;uniqueIndex" json:"name"`
	Breeder     string     `gorm:"size:100" json:"breeder"`
	Type        StrainType `gorm:"type:varchar(20);not null;default:'hybrid'" json:"type"`
	THC         float64    `json:"thc"` // percent
	CBD         float64    `json:"cbd"` // percent
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
