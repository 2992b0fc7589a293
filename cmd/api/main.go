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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/config"
	"github.com/karsu-its/ijara-api/internal/database"
	"github.com/karsu-its/ijara-api/internal/handler"
	"github.com/karsu-its/ijara-api/internal/middleware"
	"github.com/karsu-its/ijara-api/internal/observability"
	"github.com/karsu-its/ijara-api/internal/repository"
	"github.com/karsu-its/ijara-api/internal/router"
	"github.com/karsu-its/ijara-api/internal/service"
	cloud "github.com/karsu-its/ijara-api/pkg/cloudinary"
	"github.com/karsu-its/ijara-api/pkg/hemis"
)

// eventChannelBase prefixes the redis channels and NATS subjects used to
// fan notifications and chat messages out across nodes.
const eventChannelBase = "ijara"

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

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, caching and cross-node events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	hemisClient, err := hemis.New(hemis.Config{
		BaseURL: cfg.HemisBaseURL,
		Token:   cfg.HemisToken,
		Timeout: cfg.HemisTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create hemis client: %v", err)
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

	studentRepo := repository.NewStudentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	facultyAdminRepo := repository.NewFacultyAdminRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	apartmentRepo := repository.NewApartmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	syncRepo := repository.NewSyncRepository(db)

	pushSender := service.NewNoopPushSender(logger)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, eventChannelBase, natsConn, validate, logger)
	chatService := service.NewChatService(chatRepo, studentRepo, tutorRepo, pushSender, redisClient, eventChannelBase, natsConn, validate, logger)
	authService := service.NewAuthService(hemisClient, studentRepo, tutorRepo, facultyAdminRepo, adminRepo, permissionRepo, apartmentRepo, validate, cfg.JWTSecret, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)
	permissionService := service.NewPermissionService(permissionRepo, studentRepo, apartmentRepo, notificationRepo, tutorRepo, notificationService, logger)
	apartmentService := service.NewApartmentService(apartmentRepo, permissionRepo, studentRepo, notificationRepo, tutorRepo, uploader, pushSender, notificationService, validate, logger)
	reviewService := service.NewReviewService(apartmentRepo, notificationRepo, tutorRepo, notificationService, validate, logger)
	statsService := service.NewStatsService(statsRepo, groupRepo, redisClient, cfg.StatsCacheTTL, logger)
	syncService := service.NewSyncService(syncRepo, groupRepo, hemisClient, cfg.SyncPageSize, cfg.SyncConcurrency, logger)

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notificationService.Start(serviceCtx)
	chatService.Start(serviceCtx)

	authHandler := handler.NewAuthHandler(authService, validate, logger)
	studentHandler := handler.NewStudentHandler(studentService, validate, logger)
	permissionHandler := handler.NewPermissionHandler(permissionService, validate, logger)
	apartmentHandler := handler.NewApartmentHandler(apartmentService, validate, logger)
	reviewHandler := handler.NewReviewHandler(reviewService, validate, logger)
	statsHandler := handler.NewStatsHandler(statsService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, 30*time.Second)
	chatHandler := handler.NewChatHandler(chatService, validate, logger)
	syncHandler := handler.NewSyncHandler(syncService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())

	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         authHandler,
		StudentHandler:      studentHandler,
		PermissionHandler:   permissionHandler,
		ApartmentHandler:    apartmentHandler,
		ReviewHandler:       reviewHandler,
		StatsHandler:        statsHandler,
		NotificationHandler: notificationHandler,
		ChatHandler:         chatHandler,
		SyncHandler:         syncHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopServices)
}

func waitForShutdown(app *fiber.App, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
