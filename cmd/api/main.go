package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-handoff/internal/api"
	"order-handoff/internal/config"
	"order-handoff/internal/database"
	"order-handoff/internal/modules/evidence"
	"order-handoff/internal/modules/notifications"
	"order-handoff/internal/modules/orders"
	"order-handoff/internal/modules/ratings"
	"order-handoff/internal/modules/verification"
	"order-handoff/pkg/email"
	"order-handoff/pkg/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	e := echo.New()

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database configuration: %v", err)
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	e.Logger.Info("Successfully connected to the database!")

	if err := database.Migrate(context.Background(), dbPool); err != nil {
		log.Fatalf("Unable to apply database schema: %v", err)
	}

	// 4. --- External collaborators ---
	var alerter *email.Alerter
	if cfg.AlertFromEmail != "" && cfg.AlertToEmail != "" {
		sender, err := email.NewSESV2Sender(context.Background(), cfg.AWSRegion, cfg.AlertFromEmail)
		if err != nil {
			log.Fatalf("Unable to initialize SES sender: %v", err)
		}
		alerter = email.NewAlerter(sender, cfg.AlertToEmail)
	}

	blobStore, err := storage.NewS3Store(context.Background(), cfg.AWSRegion, cfg.EvidenceBucket)
	if err != nil {
		log.Fatalf("Unable to initialize evidence storage: %v", err)
	}

	// 5. --- Dependency Injection (Wiring everything up) ---
	// --- Evidence Module ---
	orderRepo := orders.NewRepository(dbPool)
	evidenceRepo := evidence.NewRepository(dbPool)
	evidenceService := evidence.NewService(evidenceRepo, orderRepo, blobStore)
	evidenceHandler := evidence.NewHandler(evidenceService)

	// --- Orders + Verification Modules (mutually wired) ---
	verificationRepo := verification.NewRepository(dbPool)
	verificationService := verification.NewService(
		verificationRepo, orderRepo, evidenceRepo,
		cfg.PasscodeTTL, cfg.ProximityThresholdM,
	)
	verificationHandler := verification.NewHandler(verificationService)

	orderService := orders.NewService(orderRepo, verificationService, verificationRepo, alerter)
	orderHandler := orders.NewHandler(orderService)

	// --- Notification Feed Module ---
	notificationRepo := notifications.NewRepository(dbPool)
	notificationService := notifications.NewService(notificationRepo)
	notificationHandler := notifications.NewHandler(notificationService)

	// --- Ratings Module ---
	ratingRepo := ratings.NewRepository(dbPool)
	ratingService := ratings.NewService(ratingRepo, orderRepo)
	ratingHandler := ratings.NewHandler(ratingService)

	// 6. --- Initialize Router ---
	api.SetupRoutes(e,
		orderHandler,
		verificationHandler,
		evidenceHandler,
		notificationHandler,
		ratingHandler,
		cfg.JWTSecret,
	)

	// 7. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Server forced to shutdown:", err)
	}
	log.Println("Server exiting")
}
