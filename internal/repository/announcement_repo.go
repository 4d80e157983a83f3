package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// AnnouncementRepository defines persistence operations for announcements.
type AnnouncementRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id uint) error
}

type announcementRepository struct {
	db *gorm.DB
}

// NewAnnouncementRepository instantiates a GORM-backed repository.
func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Announcement, error) {
	var announcements []models.Announcement
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("pinned DESC, created_at DESC").
		Find(&announcements).Error
	if err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *announcementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	return r.db.WithContext(ctx).Create(announcement).Error
}

func (r *announcementRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Announcement{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
