package models

import "time"

// Announcement is an instructor-authored message scoped to a course.
type Announcement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Pinned    bool      `gorm:"not null;default:false" json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
