// Package grading scores quiz attempt answers. Choice questions are graded
// automatically by set-equality of the selected options against the options
// flagged correct; free-text questions are left unscored pending manual
// review, with correctness undefined until a human enters points.
package grading

import "github.com/coursekit/coursekit-go-api/internal/models"

// Result is the grading outcome for one answer. PointsAwarded and IsCorrect
// are nil while the answer awaits manual review.
type Result struct {
	PointsAwarded *float64
	IsCorrect     *bool
}

// Pending reports whether the answer still needs a human score.
func (r Result) Pending() bool {
	return r.PointsAwarded == nil
}

// Grade scores a single answer against its question. Each question type is
// handled explicitly; a type this build does not know is routed to manual
// review rather than silently scored.
func Grade(question models.QuizQuestion, selectedOptionIDs []uint, answerText string) Result {
	switch question.Type {
	case models.QuestionMultipleChoice, models.QuestionTrueFalse:
		return gradeChoice(question, selectedOptionIDs)
	case models.QuestionShortAnswer, models.QuestionEssay, models.QuestionFillInBlank:
		return Result{}
	default:
		return Result{}
	}
}

func gradeChoice(question models.QuizQuestion, selected []uint) Result {
	correct := setEqual(selected, question.CorrectOptionIDs())

	points := 0.0
	if correct {
		points = question.Points
	}
	return Result{PointsAwarded: &points, IsCorrect: &correct}
}

// Summary aggregates the grading outcome of a whole attempt.
type Summary struct {
	Score         float64
	MaxScore      float64
	PendingReview bool
}

// Summarize folds per-answer results into the attempt score. The score
// covers only auto-graded answers; PendingReview is set while any answer
// still needs a human score, in which case the attempt must stay submitted
// rather than graded.
func Summarize(questions []models.QuizQuestion, results map[uint]Result) Summary {
	summary := Summary{}
	for _, question := range questions {
		summary.MaxScore += question.Points

		result, answered := results[question.ID]
		if !answered {
			// Unanswered choice questions score zero; unanswered free-text
			// questions still need a reviewer to confirm the zero.
			if !question.Type.IsChoice() {
				summary.PendingReview = true
			}
			continue
		}

		if result.Pending() {
			summary.PendingReview = true
			continue
		}
		summary.Score += *result.PointsAwarded
	}
	return summary
}

func setEqual(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[uint]struct{}, len(a))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	if len(seen) != len(b) {
		return false
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			return false
		}
	}
	return true
}
