package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/winnipeg-connect/backend/internal/config"
	"github.com/winnipeg-connect/backend/internal/db"
	"github.com/winnipeg-connect/backend/internal/gateway"
	httpHandlers "github.com/winnipeg-connect/backend/internal/http/handlers"
	httpRouter "github.com/winnipeg-connect/backend/internal/http/router"
	"github.com/winnipeg-connect/backend/internal/logger"
	"github.com/winnipeg-connect/backend/internal/repository"
	"github.com/winnipeg-connect/backend/internal/service"
	"github.com/winnipeg-connect/backend/internal/storage"
	"github.com/winnipeg-connect/backend/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: failed to load configuration: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: failed to connect to database: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: migrations failed: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: failed to prepare file storage: %v", err)
	}

	paymentGateway := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey)

	// Repositories.
	userRepo := repository.NewUserRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	quoteRepo := repository.NewQuoteRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	withdrawalRepo := repository.NewWithdrawalRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)

	// Services.
	authService := service.NewAuthService(userRepo, tokenManager)
	profileService := service.NewProfileService(userRepo, reviewRepo, quoteRepo)
	jobService := service.NewJobService(jobRepo)
	quoteService := service.NewQuoteService(quoteRepo, jobRepo, cfg.QuoteValidity)
	paymentService := service.NewPaymentService(paymentRepo, quoteRepo, jobRepo, paymentGateway, cfg.Currency, cfg.EscrowHoldPeriod)
	categoryService := service.NewCategoryService(categoryRepo)
	conversationService := service.NewConversationService(conversationRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	reviewService := service.NewReviewService(reviewRepo, jobRepo)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo)

	// WebSocket hub.
	hub := ws.NewHub()
	go hub.Run()

	// Cross-service wiring. Domain services broadcast through the
	// notification service so every event is persisted with an unread badge
	// and mirrored to connected sockets; chat delivery stays hub-only.
	conversationService.SetHub(hub)
	notificationService.SetHub(hub)
	jobService.SetPayments(paymentService)
	jobService.SetChat(conversationService)
	jobService.SetHub(notificationService)
	quoteService.SetChat(conversationService)
	quoteService.SetHub(notificationService)
	paymentService.SetChat(conversationService)
	paymentService.SetHub(notificationService)

	// HTTP handlers.
	h := httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService),
		Profile:      httpHandlers.NewProfileHandler(profileService),
		Job:          httpHandlers.NewJobHandler(jobService),
		Quote:        httpHandlers.NewQuoteHandler(quoteService),
		Payment:      httpHandlers.NewPaymentHandler(paymentService),
		Category:     httpHandlers.NewCategoryHandler(categoryService),
		Conversation: httpHandlers.NewConversationHandler(conversationService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		Review:       httpHandlers.NewReviewHandler(reviewService),
		Withdrawal:   httpHandlers.NewWithdrawalHandler(withdrawalService),
		Media:        httpHandlers.NewMediaHandler(mediaRepo, fileStorage),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager),
		Health:       httpHandlers.NewHealthHandler(dbConn),
	}

	engine := httpRouter.SetupRouter(cfg, h, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: http server shutdown error: %v", err)
		}
	}()

	log.Printf("main: HTTP server listening on port %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: server exited with error: %v", err)
	}
}

func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: error closing database: %v", err)
	}
}
