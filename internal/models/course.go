package models

import "time"

// CourseStatus is the publication lifecycle state of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

// GradeLevel groups courses by the academic level they target.
type GradeLevel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Ordinal   int       `gorm:"not null;default:0" json:"ordinal"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course is owned by exactly one instructor and carries enrollments and content.
type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	InstructorID uint           `gorm:"not null;index" json:"instructor_id"`
	GradeLevelID uint           `gorm:"index" json:"grade_level_id"`
	Status       CourseStatus   `gorm:"size:32;not null;default:'draft'" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Enrollments  []Enrollment   `gorm:"foreignKey:CourseID" json:"enrollments,omitempty"`
	Modules      []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

// IsPublished reports whether students may discover the course.
func (c Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}

// IsArchived reports whether the course has been retired from editing.
func (c Course) IsArchived() bool {
	return c.Status == CourseStatusArchived
}

// CourseModule is an ordered content section inside a course.
type CourseModule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	Published   bool      `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
