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
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/classpulse/quiz-go-api/internal/config"
	"github.com/classpulse/quiz-go-api/internal/database"
	"github.com/classpulse/quiz-go-api/internal/handler"
	"github.com/classpulse/quiz-go-api/internal/middleware"
	"github.com/classpulse/quiz-go-api/internal/models"
	"github.com/classpulse/quiz-go-api/internal/repository"
	"github.com/classpulse/quiz-go-api/internal/router"
	"github.com/classpulse/quiz-go-api/internal/service"
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
		&models.Class{},
		&models.Student{},
		&models.Enrollment{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Submission{},
		&models.AnswerRecord{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NatsURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	quizRepo := repository.NewCachedQuizRepository(
		repository.NewQuizRepository(db), redisClient, cfg.QuizCacheTTL, logger)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	rootCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	hub := service.NewLiveHub(redisClient, cfg.ChannelBase, natsConn, logger)
	hub.Start(rootCtx)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	activationService := service.NewActivationService(
		quizRepo, enrollmentRepo, hub, redisClient, cfg.ActivationStateTTL, activityService, logger)
	ledger := service.NewAnswerLedger(submissionRepo, quizRepo, enrollmentRepo, hub, logger)
	scheduler := service.NewTimerScheduler(clockwork.NewRealClock(), logger)
	sessionService := service.NewSessionService(
		submissionRepo, quizRepo, enrollmentRepo, ledger, scheduler, hub,
		activationService, activityService, cfg.DefaultQuestionTime(), logger)

	sessionHandler := handler.NewSessionHandler(sessionService, validate, logger)
	activationHandler := handler.NewActivationHandler(activationService, validate, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)
	liveHandler := handler.NewLiveHandler(hub, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:    sessionHandler,
		ActivationHandler: activationHandler,
		ActivityHandler:   activityHandler,
		LiveHandler:       liveHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
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
