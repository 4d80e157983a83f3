package attempt

import (
	"fmt"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

// RemainingAttempts computes how many attempts a student has left from the
// best-known taken count. The result is a hint: the server recounts before
// creating an attempt, since another session may have consumed attempts
// concurrently. Returns models.UnlimitedAttempts for uncapped quizzes.
func RemainingAttempts(allowed, taken int) int {
	if allowed == models.UnlimitedAttempts {
		return models.UnlimitedAttempts
	}
	remaining := allowed - taken
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// StartLabel renders the start-affordance text for the attempt count.
func StartLabel(allowed, taken int) string {
	remaining := RemainingAttempts(allowed, taken)
	switch {
	case remaining == models.UnlimitedAttempts:
		if taken > 0 {
			return "Retake quiz"
		}
		return "Start quiz"
	case remaining == 0:
		return "No attempts remaining"
	case taken > 0:
		return fmt.Sprintf("Retake quiz (%d remaining)", remaining)
	default:
		return "Start quiz"
	}
}
