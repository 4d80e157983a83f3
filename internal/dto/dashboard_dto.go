package dto

import "time"

// QuizProgress summarizes a student's standing on one quiz.
type QuizProgress struct {
	QuizID            uint     `json:"quiz_id"`
	Title             string   `json:"title"`
	AllowedAttempts   int      `json:"allowed_attempts"`
	AttemptsTaken     int      `json:"attempts_taken"`
	RemainingAttempts int      `json:"remaining_attempts"`
	StartLabel        string   `json:"start_label"`
	BestScore         *float64 `json:"best_score,omitempty"`
}

// CourseProgress summarizes a student's standing in one enrolled course.
type CourseProgress struct {
	CourseID         uint           `json:"course_id"`
	Title            string         `json:"title"`
	EnrollmentStatus string         `json:"enrollment_status"`
	Quizzes          []QuizProgress `json:"quizzes"`
}

// StudentDashboardResponse aggregates enrolled-course and quiz progress.
type StudentDashboardResponse struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Courses     []CourseProgress `json:"courses"`
}
