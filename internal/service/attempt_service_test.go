package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/dto"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

func (e *testEnv) attemptService(t *testing.T) (AttemptService, *attempt.Runtime) {
	t.Helper()
	runtime := attempt.NewRuntime(zerolog.Nop())
	svc := NewAttemptService(
		repository.NewAttemptRepository(e.db),
		repository.NewQuizRepository(e.db),
		e.quizService(t),
		runtime,
		e.cache,
		e.publisher,
		zerolog.Nop(),
	)
	return svc, runtime
}

func TestAttemptServiceStartAndDuplicateStart(t *testing.T) {
	env := newTestEnv(t)
	svc, runtime := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	env.seedChoiceQuestion(t, quiz.ID, 1, []string{"yes", "no"}, []int{0})

	ctx := context.Background()

	started, err := svc.Start(ctx, callerFor(student), quiz.ID)
	require.NoError(t, err)
	require.Equal(t, 1, started.AttemptNumber)
	require.Equal(t, models.AttemptStatusInProgress, started.Status)
	require.Equal(t, 1, runtime.Len())

	_, err = svc.Start(ctx, callerFor(student), quiz.ID)
	require.ErrorIs(t, err, ErrAttemptInProgress)
}

func TestAttemptServiceLimitEnforcedWithAuthoritativeCount(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.AllowedAttempts = 1 })
	env.seedChoiceQuestion(t, quiz.ID, 1, []string{"yes", "no"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, caller, quiz.ID)
	require.ErrorIs(t, err, ErrAttemptLimitExceeded)

	var limitErr *AttemptLimitError
	require.True(t, errors.As(err, &limitErr))
	require.Equal(t, 1, limitErr.Allowed)
	require.Equal(t, 1, limitErr.Taken)
}

func TestAttemptServiceSubmitGradesChoiceAnswers(t *testing.T) {
	env := newTestEnv(t)
	svc, runtime := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	right := env.seedChoiceQuestion(t, quiz.ID, 3, []string{"red", "green"}, []int{1})
	wrong := env.seedChoiceQuestion(t, quiz.ID, 2, []string{"up", "down"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)

	err = svc.CaptureAnswer(ctx, caller, started.ID, right.ID, dto.AnswerRequest{SelectedOptionIDs: []uint{right.Options[1].ID}})
	require.NoError(t, err)
	err = svc.CaptureAnswer(ctx, caller, started.ID, wrong.ID, dto.AnswerRequest{SelectedOptionIDs: []uint{wrong.Options[1].ID}})
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptStatusGraded, submitted.Status)
	require.NotNil(t, submitted.Score)
	require.Equal(t, 3.0, *submitted.Score)
	require.False(t, submitted.AutoSubmitted)
	require.Equal(t, 0, runtime.Len())

	_, err = svc.Submit(ctx, caller, started.ID)
	require.ErrorIs(t, err, ErrNoLiveSession)
}

func TestAttemptServiceEssayStaysPendingUntilScored(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	essay := env.seedEssayQuestion(t, quiz.ID, 5)

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	err = svc.CaptureAnswer(ctx, caller, started.ID, essay.ID, dto.AnswerRequest{AnswerText: "Because entropy always increases."})
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptStatusSubmitted, submitted.Status)

	var answer models.QuizAttemptAnswer
	require.NoError(t, env.db.Where("attempt_id = ?", started.ID).First(&answer).Error)
	require.Nil(t, answer.PointsAwarded)

	graded, err := svc.ScoreAnswer(ctx, callerFor(instructor), started.ID, answer.ID, 4, true)
	require.NoError(t, err)
	require.Equal(t, models.AttemptStatusGraded, graded.Status)
	require.NotNil(t, graded.Score)
	require.Equal(t, 4.0, *graded.Score)

	_, err = svc.ScoreAnswer(ctx, caller, started.ID, answer.ID, 5, true)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAttemptServiceCaptureAnswerSanitizesFreeText(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	essay := env.seedEssayQuestion(t, quiz.ID, 2)

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	err = svc.CaptureAnswer(ctx, caller, started.ID, essay.ID, dto.AnswerRequest{AnswerText: `<script>alert("x")</script> plain text`})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)

	var answer models.QuizAttemptAnswer
	require.NoError(t, env.db.Where("attempt_id = ?", started.ID).First(&answer).Error)
	require.Equal(t, "plain text", answer.AnswerText)
}

func TestAttemptServiceTimerExpiryAutoSubmits(t *testing.T) {
	env := newTestEnv(t)
	svc, runtime := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.TimeLimitMinutes = 1 })
	question := env.seedChoiceQuestion(t, quiz.ID, 1, []string{"yes", "no"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	require.NotNil(t, started.RemainingSeconds)
	require.Equal(t, 60, *started.RemainingSeconds)

	err = svc.CaptureAnswer(ctx, caller, started.ID, question.ID, dto.AnswerRequest{SelectedOptionIDs: []uint{question.Options[0].ID}})
	require.NoError(t, err)

	session, err := svc.Session(caller, started.ID)
	require.NoError(t, err)
	for i := 0; i < 60; i++ {
		require.NoError(t, session.Tick(ctx))
	}

	require.Equal(t, attempt.StateCompleted, session.State())
	runtime.Detach(started.ID)

	var stored models.QuizAttempt
	require.NoError(t, env.db.First(&stored, started.ID).Error)
	require.True(t, stored.AutoSubmitted)
	require.Equal(t, models.AttemptStatusGraded, stored.Status)
	require.NotNil(t, stored.Score)
	require.Equal(t, 1.0, *stored.Score)
}

func TestAttemptServiceResultsVisibility(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	classmate := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	env.seedEnrollment(t, course.ID, classmate.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	question := env.seedChoiceQuestion(t, quiz.ID, 2, []string{"a", "b"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	err = svc.CaptureAnswer(ctx, caller, started.ID, question.ID, dto.AnswerRequest{SelectedOptionIDs: []uint{question.Options[0].ID}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)

	own, err := svc.Results(ctx, caller, started.ID)
	require.NoError(t, err)
	require.Len(t, own.Answers, 1)
	require.NotNil(t, own.Answers[0].IsCorrect)

	_, err = svc.Results(ctx, callerFor(classmate), started.ID)
	require.ErrorIs(t, err, ErrAttemptNotFound)

	asOwner, err := svc.Results(ctx, callerFor(instructor), started.ID)
	require.NoError(t, err)
	require.NotNil(t, asOwner.Answers[0].PointsAwarded)
}

func TestAttemptServiceResultsHideCorrectnessWhenDisabled(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.ShowCorrectAnswers = false })
	question := env.seedChoiceQuestion(t, quiz.ID, 2, []string{"a", "b"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	err = svc.CaptureAnswer(ctx, caller, started.ID, question.ID, dto.AnswerRequest{SelectedOptionIDs: []uint{question.Options[0].ID}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)

	results, err := svc.Results(ctx, caller, started.ID)
	require.NoError(t, err)
	require.Nil(t, results.Answers[0].IsCorrect)
	require.Nil(t, results.Answers[0].PointsAwarded)
	require.NotNil(t, results.Attempt.Score)
}

func TestAttemptServiceListAllRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	env.seedChoiceQuestion(t, quiz.ID, 1, []string{"a", "b"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)

	_, err = svc.ListAll(ctx, caller, quiz.ID)
	require.ErrorIs(t, err, ErrForbidden)

	all, err := svc.ListAll(ctx, callerFor(instructor), quiz.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)

	own, err := svc.ListOwn(ctx, caller, quiz.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
}

func TestAttemptServiceAllowanceLabels(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, func(q *models.Quiz) { q.AllowedAttempts = 2 })
	env.seedChoiceQuestion(t, quiz.ID, 1, []string{"a", "b"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	allowance, err := svc.Allowance(ctx, caller, quiz.ID)
	require.NoError(t, err)
	require.Equal(t, 2, allowance.RemainingAttempts)
	require.Equal(t, "Start quiz", allowance.StartLabel)

	started, err := svc.Start(ctx, caller, quiz.ID)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, caller, started.ID)
	require.NoError(t, err)

	allowance, err = svc.Allowance(ctx, caller, quiz.ID)
	require.NoError(t, err)
	require.Equal(t, 1, allowance.RemainingAttempts)
	require.Equal(t, "Retake quiz (1 remaining)", allowance.StartLabel)
}

func TestAttemptServiceNumbersAttemptsSequentially(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := env.attemptService(t)

	instructor := env.seedUser(t, models.RoleInstructor)
	student := env.seedUser(t, models.RoleStudent)
	course := env.seedCourse(t, instructor.ID, models.CourseStatusPublished)
	env.seedEnrollment(t, course.ID, student.ID)
	quiz := env.seedQuiz(t, course.ID, nil)
	env.seedChoiceQuestion(t, quiz.ID, 1, []string{"a", "b"}, []int{0})

	ctx := context.Background()
	caller := callerFor(student)

	for want := 1; want <= 3; want++ {
		started, err := svc.Start(ctx, caller, quiz.ID)
		require.NoError(t, err)
		require.Equal(t, want, started.AttemptNumber)

		_, err = svc.Submit(ctx, caller, started.ID)
		require.NoError(t, err)
	}

	attempts, err := svc.ListOwn(ctx, caller, quiz.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for i, listed := range attempts {
		require.Equal(t, i+1, listed.AttemptNumber)
	}
}
