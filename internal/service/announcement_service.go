package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/access"
	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/events"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

// AnnouncementService manages course announcements.
type AnnouncementService interface {
	List(ctx context.Context, caller auth.Context, courseID uint) ([]dto.AnnouncementResponse, error)
	Create(ctx context.Context, caller auth.Context, courseID uint, payload dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error)
	Delete(ctx context.Context, caller auth.Context, courseID, announcementID uint) error
}

type announcementService struct {
	announcements repository.AnnouncementRepository
	courses       CourseService
	cache         *cache.Store
	cacheTTL      time.Duration
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	publisher     *events.Publisher
	logger        zerolog.Logger
}

// NewAnnouncementService builds the announcement service. Announcement
// bodies are instructor-authored HTML, so a UGC policy is applied rather
// than the strict one used for student answers.
func NewAnnouncementService(announcements repository.AnnouncementRepository, courses CourseService, cacheStore *cache.Store, cacheTTL time.Duration, v *validator.Validate, publisher *events.Publisher, logger zerolog.Logger) AnnouncementService {
	return &announcementService{
		announcements: announcements,
		courses:       courses,
		cache:         cacheStore,
		cacheTTL:      cacheTTL,
		validator:     v,
		sanitizer:     bluemonday.UGCPolicy(),
		publisher:     publisher,
		logger:        logger.With().Str("component", "announcement_service").Logger(),
	}
}

func canViewContent(a access.CourseAccess) bool { return a.CanAccessContent }
func canEditCourse(a access.CourseAccess) bool  { return a.CanEdit }

func (s *announcementService) List(ctx context.Context, caller auth.Context, courseID uint) ([]dto.AnnouncementResponse, error) {
	if _, _, err := s.courses.Authorize(ctx, caller, courseID, canViewContent); err != nil {
		return nil, err
	}

	var announcements []models.Announcement
	err := s.cache.Get(ctx, cache.NewEntityKey("announcements-course", courseID), s.cacheTTL, &announcements, func(ctx context.Context) (interface{}, error) {
		return s.announcements.ListByCourse(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAnnouncementResponseSlice(announcements), nil
}

func (s *announcementService) Create(ctx context.Context, caller auth.Context, courseID uint, payload dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	if _, _, err := s.courses.Authorize(ctx, caller, courseID, canEditCourse); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	announcement := models.Announcement{
		CourseID: courseID,
		AuthorID: caller.UserID,
		Title:    s.sanitizer.Sanitize(payload.Title),
		Body:     s.sanitizer.Sanitize(payload.Body),
		Pinned:   payload.Pinned,
	}

	err := s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.announcements.Create(ctx, &announcement)
	}, cache.NewEntityKey("announcements-course", courseID))
	if err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.publisher.Publish(events.SubjectAnnouncementCreated, events.AnnouncementCreatedEvent{
		AnnouncementID: announcement.ID,
		CourseID:       announcement.CourseID,
		AuthorID:       announcement.AuthorID,
		Title:          announcement.Title,
	})

	s.logger.Info().Uint("announcement_id", announcement.ID).Uint("course_id", courseID).Msg("announcement created")
	return dto.NewAnnouncementResponse(announcement), nil
}

func (s *announcementService) Delete(ctx context.Context, caller auth.Context, courseID, announcementID uint) error {
	if _, _, err := s.courses.Authorize(ctx, caller, courseID, canEditCourse); err != nil {
		return err
	}

	return s.cache.Mutate(ctx, func(ctx context.Context) error {
		return s.announcements.Delete(ctx, announcementID)
	}, cache.NewEntityKey("announcements-course", courseID))
}
