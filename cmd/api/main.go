package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/coursekit/coursekit-go-api/internal/attempt"
	"github.com/coursekit/coursekit-go-api/internal/cache"
	"github.com/coursekit/coursekit-go-api/internal/config"
	"github.com/coursekit/coursekit-go-api/internal/database"
	"github.com/coursekit/coursekit-go-api/internal/events"
	"github.com/coursekit/coursekit-go-api/internal/handler"
	"github.com/coursekit/coursekit-go-api/internal/middleware"
	"github.com/coursekit/coursekit-go-api/internal/models"
	"github.com/coursekit/coursekit-go-api/internal/repository"
	"github.com/coursekit/coursekit-go-api/internal/router"
	"github.com/coursekit/coursekit-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.GradeLevel{},
		&models.Course{},
		&models.CourseModule{},
		&models.Enrollment{},
		&models.Announcement{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuestionOption{},
		&models.QuizAttempt{},
		&models.QuizAttemptAnswer{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	cacheStore := cache.New(redisClient, logger)
	publisher := events.NewPublisher(natsConn, logger)
	runtime := attempt.NewRuntime(logger)

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	courseService := service.NewCourseService(courseRepo, enrollmentRepo, cacheStore, cfg.CacheTTL, logger)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseService, cacheStore, cfg.CacheTTL, validate, publisher, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, courseService, cacheStore, cfg.CacheTTL, validate, publisher, logger)
	quizService := service.NewQuizService(quizRepo, courseService, cacheStore, cfg.CacheTTL, logger)
	attemptService := service.NewAttemptService(attemptRepo, quizRepo, quizService, runtime, cacheStore, publisher, logger)
	dashboardService := service.NewStudentDashboardService(enrollmentRepo, courseRepo, quizRepo, attemptRepo, cacheStore, cfg.DashboardCacheTTL, logger)

	courseHandler := handler.NewCourseHandler(courseService, enrollmentService, announcementService, quizService, logger)
	quizHandler := handler.NewQuizHandler(quizService, attemptService, logger)
	attemptHandler := handler.NewAttemptHandler(attemptService, logger)
	dashboardHandler := handler.NewStudentDashboardHandler(dashboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:           courseHandler,
		QuizHandler:             quizHandler,
		AttemptHandler:          attemptHandler,
		StudentDashboardHandler: dashboardHandler,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
