package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/revenue/api/internal/config"
	"github.com/stwalsh4118/revenue/api/internal/database"
	"github.com/stwalsh4118/revenue/api/internal/handlers"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/middleware"
	"github.com/stwalsh4118/revenue/api/internal/notifier"
	"github.com/stwalsh4118/revenue/api/internal/paytoken"
	"github.com/stwalsh4118/revenue/api/internal/repository"
	"github.com/stwalsh4118/revenue/api/internal/services"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting revenue API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"timezone":    cfg.Server.Timezone,
	})

	// Validate already resolved the zone once
	loc, err := cfg.Server.Location()
	if err != nil {
		log.Fatal("Failed to load billing timezone", err, map[string]interface{}{
			"timezone": cfg.Server.Timezone,
		})
	}

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to apply migrations", err, nil)
		}
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Initialize repository and service layers
	store := repository.NewStore(db.Pool)
	tx := repository.NewTransactor(db)

	signer := paytoken.NewSigner(cfg.Payment.TokenSecret, cfg.Payment.TokenTTL, nil)
	webhookNotifier := notifier.New(
		cfg.Payment.WebhookTimeout,
		notifier.DefaultRetryConfig(cfg.Payment.WebhookMaxRetries),
		cfg.Payment.WebhookSecret,
		log,
	)

	configService := services.NewConfigService(store.Rates, tx, loc, log)
	registrationService := services.NewRegistrationService(store, tx, loc, log)
	assessmentService := services.NewAssessmentService(store.Rates, loc, log)
	billingService := services.NewBillingService(store, loc, log)
	webhookService := services.NewWebhookService(tx, loc, log)
	paymentService := services.NewPaymentService(store.Payments, tx, signer, webhookNotifier, cfg.Payment.EchoOTP, loc, log)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env, cfg.Server.Timezone)
	configHandler := handlers.NewConfigHandler(configService, loc)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, billingService)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Register health check routes
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		configs := v1.Group("/configs/:kind")
		{
			configs.GET("", configHandler.List)
			configs.POST("", configHandler.Create)
			configs.GET("/:id", configHandler.Get)
			configs.PUT("/:id", configHandler.Update)
			configs.POST("/:id/expire", configHandler.Expire)
			configs.DELETE("/:id", configHandler.Delete)
		}

		registrations := v1.Group("/registrations")
		{
			registrations.POST("", registrationHandler.Submit)
			registrations.GET("", registrationHandler.List)
			registrations.GET("/:id", registrationHandler.Get)
			registrations.POST("/:id/schedule-inspection", registrationHandler.ScheduleInspection)
			registrations.POST("/:id/mark-assessed", registrationHandler.MarkAssessed)
			registrations.POST("/:id/request-correction", registrationHandler.RequestCorrection)
			registrations.POST("/:id/resubmit", registrationHandler.Resubmit)
			registrations.PUT("/:id/land-assessment", registrationHandler.SaveLandAssessment)
			registrations.PUT("/:id/building-assessment", registrationHandler.SaveBuildingAssessment)
			registrations.POST("/:id/approve", registrationHandler.Approve)
			registrations.GET("/:id/billing", registrationHandler.Billing)
		}

		v1.POST("/assessments/preview", assessmentHandler.Preview)

		v1.POST("/webhooks/payments", middleware.WebhookSecret(cfg.Payment.WebhookSecret), webhookHandler.Payment)

		payments := v1.Group("/payments")
		{
			payments.GET("/methods", paymentHandler.Methods)
			payments.POST("", paymentHandler.Create)
			payments.POST("/verify", paymentHandler.Verify)
			payments.GET("/:id", paymentHandler.Get)
			payments.POST("/:id/notify", paymentHandler.Notify)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
