package service

import (
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/auth"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/events"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
)

type testEnv struct {
	db        *gorm.DB
	cache     *cache.Store
	mini      *miniredis.Miniredis
	publisher *events.Publisher
	validate  *validator.Validate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseModule{},
		&models.Enrollment{},
		&models.Announcement{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuestionOption{},
		&models.QuizAttempt{},
		&models.QuizAttemptAnswer{},
	))

	return &testEnv{
		db:        db,
		cache:     cache.New(client, zerolog.Nop()),
		mini:      mini,
		publisher: events.NewPublisher(nil, zerolog.Nop()),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (e *testEnv) courseService(t *testing.T) CourseService {
	t.Helper()
	return NewCourseService(
		repository.NewCourseRepository(e.db),
		repository.NewEnrollmentRepository(e.db),
		e.cache,
		time.Minute,
		zerolog.Nop(),
	)
}

func (e *testEnv) quizService(t *testing.T) QuizService {
	t.Helper()
	return NewQuizService(
		repository.NewQuizRepository(e.db),
		e.courseService(t),
		e.cache,
		time.Minute,
		zerolog.Nop(),
	)
}

func (e *testEnv) seedUser(t *testing.T, role models.Role) models.User {
	t.Helper()
	user := models.User{Name: "Test User", Email: randomEmail(t), Role: role, IsActive: true}
	require.NoError(t, e.db.Create(&user).Error)
	return user
}

var emailCounter int

func randomEmail(t *testing.T) string {
	t.Helper()
	emailCounter++
	return fmt.Sprintf("user%d@example.com", emailCounter)
}

func (e *testEnv) seedCourse(t *testing.T, instructorID uint, status models.CourseStatus) models.Course {
	t.Helper()
	course := models.Course{Title: "Intro to Testing", InstructorID: instructorID, Status: status}
	require.NoError(t, e.db.Create(&course).Error)
	return course
}

func (e *testEnv) seedEnrollment(t *testing.T, courseID, userID uint) models.Enrollment {
	t.Helper()
	enrollment := models.Enrollment{CourseID: courseID, UserID: userID, Status: models.EnrollmentStatusActive}
	require.NoError(t, e.db.Create(&enrollment).Error)
	return enrollment
}

func (e *testEnv) seedQuiz(t *testing.T, courseID uint, mutate func(*models.Quiz)) models.Quiz {
	t.Helper()
	quiz := models.Quiz{
		CourseID:           courseID,
		Title:              "Checkpoint Quiz",
		AllowedAttempts:    models.UnlimitedAttempts,
		ShowCorrectAnswers: true,
		Published:          true,
	}
	if mutate != nil {
		mutate(&quiz)
	}
	require.NoError(t, e.db.Create(&quiz).Error)
	return quiz
}

func (e *testEnv) seedChoiceQuestion(t *testing.T, quizID uint, points float64, optionTexts []string, correct []int) models.QuizQuestion {
	t.Helper()
	question := models.QuizQuestion{QuizID: quizID, Type: models.QuestionMultipleChoice, Prompt: "Pick the right one", Points: points}
	require.NoError(t, e.db.Create(&question).Error)

	correctSet := map[int]bool{}
	for _, idx := range correct {
		correctSet[idx] = true
	}
	for i, text := range optionTexts {
		option := models.QuestionOption{QuestionID: question.ID, Text: text, IsCorrect: correctSet[i], Position: i}
		require.NoError(t, e.db.Create(&option).Error)
		question.Options = append(question.Options, option)
	}
	return question
}

func (e *testEnv) seedEssayQuestion(t *testing.T, quizID uint, points float64) models.QuizQuestion {
	t.Helper()
	question := models.QuizQuestion{QuizID: quizID, Type: models.QuestionEssay, Prompt: "Explain your reasoning", Points: points}
	require.NoError(t, e.db.Create(&question).Error)
	return question
}

func callerFor(user models.User) auth.Context {
	return auth.Context{UserID: user.ID, Role: user.Role}
}

func floatPointer(v float64) *float64 {
	return &v
}
