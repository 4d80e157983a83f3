package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coursekit/coursekit-go-api/internal/models"
)

func newAttemptTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuestionOption{},
		&models.QuizAttempt{},
		&models.QuizAttemptAnswer{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	return db
}

func seedAttemptQuiz(t *testing.T, db *gorm.DB, allowedAttempts int) models.Quiz {
	t.Helper()
	quiz := models.Quiz{CourseID: 1, Title: "Recursion", AllowedAttempts: allowedAttempts, Published: true}
	require.NoError(t, db.Create(&quiz).Error)
	return quiz
}

func TestCreateNextAssignsSequentialNumbers(t *testing.T) {
	db := newAttemptTestDB(t)
	repo := NewAttemptRepository(db)
	quiz := seedAttemptQuiz(t, db, models.UnlimitedAttempts)

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		attempt, err := repo.CreateNext(ctx, quiz.ID, 7, quiz.AllowedAttempts)
		require.NoError(t, err)
		require.Equal(t, want, attempt.AttemptNumber)
	}
}

func TestCreateNextConcurrentStartsHonorCap(t *testing.T) {
	db := newAttemptTestDB(t)
	repo := NewAttemptRepository(db)
	quiz := seedAttemptQuiz(t, db, 2)

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateNext(ctx, quiz.ID, 7, quiz.AllowedAttempts)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, ErrAttemptLimitReached)
	}
	require.Equal(t, 2, created)

	var stored []models.QuizAttempt
	require.NoError(t, db.Where("quiz_id = ? AND user_id = ?", quiz.ID, 7).Order("attempt_number ASC").Find(&stored).Error)
	require.Len(t, stored, 2)
	require.Equal(t, 1, stored[0].AttemptNumber)
	require.Equal(t, 2, stored[1].AttemptNumber)
}

func TestDuplicateAttemptNumberRejectedByIndex(t *testing.T) {
	db := newAttemptTestDB(t)
	quiz := seedAttemptQuiz(t, db, models.UnlimitedAttempts)

	first := models.QuizAttempt{QuizID: quiz.ID, UserID: 7, AttemptNumber: 1, Status: models.AttemptStatusInProgress}
	require.NoError(t, db.Create(&first).Error)

	duplicate := models.QuizAttempt{QuizID: quiz.ID, UserID: 7, AttemptNumber: 1, Status: models.AttemptStatusInProgress}
	require.Error(t, db.Create(&duplicate).Error)

	other := models.QuizAttempt{QuizID: quiz.ID, UserID: 8, AttemptNumber: 1, Status: models.AttemptStatusInProgress}
	require.NoError(t, db.Create(&other).Error)
}

func TestCreateNextMissingQuiz(t *testing.T) {
	db := newAttemptTestDB(t)
	repo := NewAttemptRepository(db)

	_, err := repo.CreateNext(context.Background(), 999, 7, models.UnlimitedAttempts)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
