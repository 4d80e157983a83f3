package models

import "time"

// EnrollmentStatus tracks the lifecycle of a student's membership in a course.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusInactive  EnrollmentStatus = "inactive"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// Enrollment links one student to one course. Cancellation deactivates the
// record rather than deleting it so attempt history stays attributable.
type Enrollment struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	CourseID  uint             `gorm:"not null;uniqueIndex:idx_course_user" json:"course_id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_course_user" json:"user_id"`
	Status    EnrollmentStatus `gorm:"size:32;not null;default:'active'" json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// IsActive reports whether the enrollment currently grants participation.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}
