package services

import (
	"context"
	"errors"
	"strings"

	"growjournal/internal/db"
	"growjournal/internal/models"

	"gorm.io/gorm"
)

type StrainInput struct {
	Name        string            `json:"name"`
	Breeder     string            `json:"breeder"`
	Type        models.StrainType `json:"type"`
	THC         float64           `json:"thc"`
	CBD         float64           `json:"cbd"`
	Description string            `json:"description"`
}

type StrainService struct{}

func NewStrainService() *StrainService {
	return &StrainService{}
}

// Search matches names and breeders, case-insensitively.
func (s *StrainService) Search(ctx context.Context, q string, limit int) ([]models.Strain, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	tx := db.DB.WithContext(ctx).Order("name ASC").Limit(limit)
	if q = strings.TrimSpace(q); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(breeder) LIKE ?", pattern, pattern)
	}
	strains := []models.Strain{}
	err := tx.Find(&strains).Error
	return strains, err
}

func (s *StrainService) Get(ctx context.Context, id uint) (*models.Strain, error) {
	var strain models.Strain
	if err := db.DB.WithContext(ctx).First(&strain, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &strain, nil
}

func (s *StrainService) Create(ctx context.Context, in StrainInput) (*models.Strain, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalidf("name is required")
	}
	if in.Type == "" {
		in.Type = models.StrainHybrid
	}
	if !in.Type.Valid() {
		return nil, invalidf("unknown strain type %q", in.Type)
	}
	if in.THC < 0 || in.THC > 100 || in.CBD < 0 || in.CBD > 100 {
		return nil, invalidf("thc and cbd are percentages")
	}

	strain := models.Strain{
		Name:        in.Name,
		Breeder:     strings.TrimSpace(in.Breeder),
		Type:        in.Type,
		THC:         in.THC,
		CBD:         in.CBD,
		Description: in.Description,
	}
	if err := db.DB.WithContext(ctx).Create(&strain).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidf("strain %q already exists", in.Name)
		}
		return nil, err
	}
	return &strain, nil
}
