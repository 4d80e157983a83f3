package models

import "time"

// Role identifies what a user is allowed to do across the platform.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
	RoleTA         Role = "ta"
)

// User represents an authenticated platform account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"size:32;not null;default:'student'" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsInstructor reports whether the user holds the instructor role.
func (u User) IsInstructor() bool {
	return u.Role == RoleInstructor
}
