package dto

import (
	"time"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// AnnouncementCreateRequest publishes a new course announcement.
type AnnouncementCreateRequest struct {
	Title  string `json:"title" validate:"required,min=3,max=255"`
	Body   string `json:"body" validate:"required,min=1"`
	Pinned bool   `json:"pinned"`
}

// AnnouncementResponse is the serialized announcement.
type AnnouncementResponse struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	AuthorID  uint      `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAnnouncementResponse converts a model into a DTO.
func NewAnnouncementResponse(model models.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:        model.ID,
		CourseID:  model.CourseID,
		AuthorID:  model.AuthorID,
		Title:     model.Title,
		Body:      model.Body,
		Pinned:    model.Pinned,
		CreatedAt: model.CreatedAt,
	}
}

// NewAnnouncementResponseSlice converts a slice of models into DTOs.
func NewAnnouncementResponseSlice(announcements []models.Announcement) []AnnouncementResponse {
	responses := make([]AnnouncementResponse, 0, len(announcements))
	for _, model := range announcements {
		responses = append(responses, NewAnnouncementResponse(model))
	}
	return responses
}
