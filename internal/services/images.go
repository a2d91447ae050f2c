package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"growjournal/internal/db"
	"growjournal/internal/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	MaxUploadFiles    = 10
	MaxUploadSize     = 10 << 20
	uploadConcurrency = 4
)

type ImageService struct {
	host ImageHost
}

func NewImageService(host ImageHost) *ImageService {
	return &ImageService{host: host}
}

// checkUpload accepts image/* files up to MaxUploadSize, judged by header and content.
func checkUpload(fh *multipart.FileHeader) error {
	if fh.Size > MaxUploadSize {
		return invalidf("%s is larger than %d MB", fh.Filename, MaxUploadSize>>20)
	}
	if ct := fh.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return invalidf("%s is not an image", fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return invalidf("%s is not an image", fh.Filename)
	}
	return nil
}

// UploadFiles pushes the files to the image host concurrently and records them as
// unattached images owned by the user, in the order given.
func (s *ImageService) UploadFiles(ctx context.Context, owner *models.User, files []*multipart.FileHeader) ([]models.Image, error) {
	if s.host == nil {
		return nil, invalidf("image uploads are not configured")
	}
	if len(files) == 0 {
		return nil, invalidf("no files uploaded")
	}
	if len(files) > MaxUploadFiles {
		return nil, invalidf("at most %d files per upload", MaxUploadFiles)
	}
	for _, fh := range files {
		if err := checkUpload(fh); err != nil {
			return nil, err
		}
	}

	uploaded := make([]*UploadedImage, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			f, err := fh.Open()
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := s.host.Upload(gctx, f, fh.Filename)
			if err != nil {
				return fmt.Errorf("upload %s: %w", fh.Filename, err)
			}
			uploaded[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.destroyUploaded(uploaded)
		return nil, err
	}

	images := make([]models.Image, len(uploaded))
	for i, u := range uploaded {
		images[i] = models.Image{PublicID: u.PublicID, URL: u.URL, OwnerID: owner.ID}
	}
	if err := db.DB.WithContext(ctx).Create(&images).Error; err != nil {
		s.destroyUploaded(uploaded)
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": owner.ID, "count": len(images)}).Info("images uploaded")
	return images, nil
}

func (s *ImageService) destroyUploaded(uploaded []*UploadedImage) {
	var ids []string
	for _, u := range uploaded {
		if u != nil {
			ids = append(ids, u.PublicID)
		}
	}
	s.DestroyAsync(ids)
}

// Delete removes an image owned by the user. Attached images may only be removed by
// the author of their post, which is always the owner.
func (s *ImageService) Delete(ctx context.Context, user *models.User, id uint) error {
	var img models.Image
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&img, id).Error; err != nil {
			return notFound(err)
		}
		if img.OwnerID != user.ID && !user.IsAdmin() {
			return ErrForbidden
		}
		if err := tx.Model(&models.Report{}).Where("cover_image_id = ?", img.ID).
			UpdateColumn("cover_image_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&img).Error
	})
	if err != nil {
		return err
	}

	if img.PostID != nil {
		var post models.Post
		if err := db.DB.WithContext(ctx).Select("id", "report_id").First(&post, *img.PostID).Error; err == nil {
			InvalidateReport(post.ReportID)
		}
	}
	s.DestroyAsync([]string{img.PublicID})
	return nil
}

// DestroyAsync removes assets from the host in the background. Failures only leave
// orphaned assets, so they are logged and dropped.
func (s *ImageService) DestroyAsync(publicIDs []string) {
	if len(publicIDs) == 0 || s.host == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, id := range publicIDs {
			if err := s.host.Destroy(ctx, id); err != nil {
				log.WithError(err).WithField("public_id", id).Warn("destroy image failed")
			}
		}
	}()
}
