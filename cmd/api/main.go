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

	"github.com/noah-isme/aruna-lms-api/internal/config"
	"github.com/noah-isme/aruna-lms-api/internal/database"
	"github.com/noah-isme/aruna-lms-api/internal/handler"
	"github.com/noah-isme/aruna-lms-api/internal/middleware"
	"github.com/noah-isme/aruna-lms-api/internal/models"
	"github.com/noah-isme/aruna-lms-api/internal/repository"
	"github.com/noah-isme/aruna-lms-api/internal/router"
	"github.com/noah-isme/aruna-lms-api/internal/service"
	cloud "github.com/noah-isme/aruna-lms-api/pkg/cloudinary"
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
		&models.Material{},
		&models.MaterialAttachment{},
		&models.Course{},
		&models.CourseModule{},
		&models.CourseModuleItem{},
		&models.Lesson{},
		&models.Assessment{},
		&models.Question{},
		&models.QuestionOption{},
		&models.Trainee{},
		&models.Enrollment{},
		&models.Submission{},
		&models.Answer{},
		&models.CourseItemProgress{},
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

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	attachmentRepo := repository.NewAttachmentRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	traineeRepo := repository.NewTraineeRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	events := service.NewNATSPublisher(natsConn, logger)
	dashboardService := service.NewProgressDashboardService(progressRepo, redisClient, cfg.DashboardCacheTTL, logger)
	attachmentService := service.NewAttachmentOrderService(attachmentRepo, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, answerRepo, assessmentRepo, progressRepo, events, dashboardService, logger)
	completionService := service.NewCompletionService(traineeRepo, enrollmentRepo, courseRepo, progressRepo, events, dashboardService, logger)
	materialService := service.NewMaterialService(materialRepo, validate, uploader, logger)

	attachmentHandler := handler.NewAttachmentHandler(attachmentService, validate, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, validate, logger)
	courseHandler := handler.NewCourseHandler(completionService, validate, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)
	materialHandler := handler.NewMaterialHandler(materialService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AttachmentHandler: attachmentHandler,
		GradingHandler:    gradingHandler,
		CourseHandler:     courseHandler,
		DashboardHandler:  dashboardHandler,
		MaterialHandler:   materialHandler,
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
