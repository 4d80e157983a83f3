package dto

import (
	"time"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// EnrollRequest enrolls a student into a course.
type EnrollRequest struct {
	UserID uint `json:"user_id" validate:"required,gt=0"`
}

// EnrollmentResponse is the serialized membership record.
type EnrollmentResponse struct {
	ID        uint                    `json:"id"`
	CourseID  uint                    `json:"course_id"`
	UserID    uint                    `json:"user_id"`
	Status    models.EnrollmentStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewEnrollmentResponse converts a model into a DTO.
func NewEnrollmentResponse(enrollment models.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:        enrollment.ID,
		CourseID:  enrollment.CourseID,
		UserID:    enrollment.UserID,
		Status:    enrollment.Status,
		CreatedAt: enrollment.CreatedAt,
		UpdatedAt: enrollment.UpdatedAt,
	}
}

// NewEnrollmentResponseSlice converts a slice of models into DTOs.
func NewEnrollmentResponseSlice(enrollments []models.Enrollment) []EnrollmentResponse {
	responses := make([]EnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		responses = append(responses, NewEnrollmentResponse(enrollment))
	}
	return responses
}
