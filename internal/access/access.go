// Package access computes the derived capability set gating what a user may
// do with a course. Resolution is pure: the same (user, course, enrollment)
// inputs always produce the same CourseAccess, and nothing is persisted.
package access

import "github.com/coursekit/coursekit-go-api/internal/models"

// CourseAccess is the derived capability set for one user on one course.
// It is recomputed on every request and never stored.
type CourseAccess struct {
	CanView          bool `json:"can_view"`
	CanEdit          bool `json:"can_edit"`
	CanEnrollUsers   bool `json:"can_enroll_users"`
	CanAccessContent bool `json:"can_access_content"`
	CanEditModules   bool `json:"can_edit_modules"`
	IsOwner          bool `json:"is_owner"`
}

// Resolve computes the capability set for an authenticated user on an
// existing course. The enrollment argument is the caller's own enrollment
// record for that course, or nil when none exists. Resolution is total: there
// are no error paths, and absent data must be signalled by the caller as a
// distinct loading state before invoking Resolve.
//
// Note the enrollment check is existence-only: an inactive or cancelled
// enrollment still counts as enrolled for view and content access. This
// mirrors long-standing production behaviour; making it status-aware is a
// product decision, not a bug fix.
func Resolve(user models.User, course models.Course, enrollment *models.Enrollment) CourseAccess {
	isOwner := course.InstructorID == user.ID
	isAdmin := user.Role == models.RoleAdmin
	isEnrolled := enrollment != nil
	isPublished := course.Status == models.CourseStatusPublished
	isArchived := course.Status == models.CourseStatusArchived

	return CourseAccess{
		CanView:          isAdmin || isOwner || (isPublished && isEnrolled),
		CanEdit:          isAdmin || (isOwner && !isArchived),
		CanEnrollUsers:   isAdmin || (isOwner && isPublished),
		CanAccessContent: isAdmin || isOwner || isEnrolled,
		CanEditModules:   isAdmin || isOwner,
		IsOwner:          isOwner || isAdmin,
	}
}
