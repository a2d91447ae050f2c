package services

import (
	"context"
	"net/url"
	"strings"

	"growjournal/internal/db"
	"growjournal/internal/models"
)

// UserProfile is the public view of a user.
type UserProfile struct {
	models.User
	ReportCount   int64 `json:"report_count"`
	LikesReceived int64 `json:"likes_received"`
}

type ProfileInput struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := db.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Profile counts the user's reports and the likes received on anything they wrote:
// reports, posts and comments.
func (s *UserService) Profile(ctx context.Context, id uint) (*UserProfile, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	conn := db.DB.WithContext(ctx)
	profile := &UserProfile{User: *user}

	if err := conn.Model(&models.Report{}).Where("author_id = ?", id).Count(&profile.ReportCount).Error; err != nil {
		return nil, err
	}
	if err := conn.Model(&models.Like{}).
		Joins("LEFT JOIN reports ON reports.id = likes.report_id").
		Joins("LEFT JOIN posts ON posts.id = likes.post_id").
		Joins("LEFT JOIN comments ON comments.id = likes.comment_id").
		Where("reports.author_id = ? OR posts.author_id = ? OR comments.author_id = ?", id, id, id).
		Count(&profile.LikesReceived).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len([]rune(name)) > 50 {
			return nil, invalidf("name must be 1 to 50 characters")
		}
		updates["name"] = name
	}
	if in.Image != nil {
		image := strings.TrimSpace(*in.Image)
		if image != "" {
			u, err := url.Parse(image)
			if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
				return nil, invalidf("image must be an http(s) url")
			}
		}
		updates["image"] = image
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, user.ID)
}
