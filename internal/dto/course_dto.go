package dto

import (
	"time"

	"github.com/coursekit/coursekit-go-api/internal/access"
	"github.com/coursekit/coursekit-go-api/internal/models"
)

// CourseResponse is the serialized representation returned to API clients,
// paired with the capability set computed for the requesting user.
type CourseResponse struct {
	ID           uint                `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	InstructorID uint                `json:"instructor_id"`
	GradeLevelID uint                `json:"grade_level_id"`
	Status       models.CourseStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Access       access.CourseAccess `json:"access"`
}

// NewCourseResponse converts a model plus the caller's resolved access.
func NewCourseResponse(course models.Course, courseAccess access.CourseAccess) CourseResponse {
	return CourseResponse{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		InstructorID: course.InstructorID,
		GradeLevelID: course.GradeLevelID,
		Status:       course.Status,
		CreatedAt:    course.CreatedAt,
		UpdatedAt:    course.UpdatedAt,
		Access:       courseAccess,
	}
}

// CourseModuleResponse is one content section of a course.
type CourseModuleResponse struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	Published   bool      `json:"published"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCourseModuleResponseSlice converts module models into DTOs.
func NewCourseModuleResponseSlice(modules []models.CourseModule) []CourseModuleResponse {
	responses := make([]CourseModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, CourseModuleResponse{
			ID:          module.ID,
			CourseID:    module.CourseID,
			Title:       module.Title,
			Description: module.Description,
			Position:    module.Position,
			Published:   module.Published,
			UpdatedAt:   module.UpdatedAt,
		})
	}
	return responses
}
