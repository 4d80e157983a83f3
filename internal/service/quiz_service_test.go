package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

func TestQuizServiceUnpublishedHiddenFromStudents(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.Published = false })

	ctx := context.Background()

	_, err := svc.Get(ctx, callerFor(student), quiz.ID)
	require.ErrorIs(t, err, ErrQuizNotFound)

	got, err := svc.Get(ctx, callerFor(instructor), quiz.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.ID, got.ID)
}

func TestQuizServiceListByCourseFiltersForStudents(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)

	env.seedQuiz(t, course.ID, nil)
	env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.Published = false })

	ctx := context.Background()

	visible, err := svc.ListByCourse(ctx, callerFor(student), course.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)

	all, err := svc.ListByCourse(ctx, callerFor(instructor), course.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestQuizServiceListQuestionsStripsCorrectness(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	env.seedChoiceQuestion(t, quiz.ID, 2, []string{"red", "green", "blue"}, []int{1})

	ctx := context.Background()

	studentView, err := svc.ListQuestions(ctx, callerFor(student), quiz.ID)
	require.NoError(t, err)
	require.Len(t, studentView, 1)
	for _, option := range studentView[0].Options {
		require.Nil(t, option.IsCorrect)
	}

	ownerView, err := svc.ListQuestions(ctx, callerFor(instructor), quiz.ID)
	require.NoError(t, err)
	correct := 0
	for _, option := range ownerView[0].Options {
		require.NotNil(t, option.IsCorrect)
		if *option.IsCorrect {
			correct++
		}
	}
	require.Equal(t, 1, correct)
}

func TestQuizServiceShuffleIsStablePerStudent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.ShuffleQuestions = true })

	for i := 0; i < 6; i++ {
		env.seedChoiceQuestion(t, quiz.ID, 1, []string{"a", "b"}, []int{0})
	}

	ctx := context.Background()

	first, err := svc.ListQuestions(ctx, callerFor(student), quiz.ID)
	require.NoError(t, err)
	second, err := svc.ListQuestions(ctx, callerFor(student), quiz.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
}
