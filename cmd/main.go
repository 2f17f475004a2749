package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dartmaster/dartmaster-api/config"
	"github.com/dartmaster/dartmaster-api/db"
	_ "github.com/dartmaster/dartmaster-api/docs"
	"github.com/dartmaster/dartmaster-api/handlers"
	"github.com/dartmaster/dartmaster-api/live"
	"github.com/dartmaster/dartmaster-api/repositories"
	"github.com/dartmaster/dartmaster-api/routes"
	"github.com/dartmaster/dartmaster-api/services"
	"github.com/dartmaster/dartmaster-api/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(context.Background(), dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema up to date")

	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("object storage not configured, logo uploads disabled")
	}

	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	refreshTokenRepo := repositories.NewPostgresRefreshTokenRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	matchParticipantRepo := repositories.NewPostgresMatchParticipantRepository(dbConn)
	throwRepo := repositories.NewPostgresThrowRepository(dbConn)
	confirmationRepo := repositories.NewPostgresConfirmationRepository(dbConn)
	statisticsRepo := repositories.NewPostgresStatisticsRepository(dbConn)

	authService := services.NewAuthService(userRepo, refreshTokenRepo, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, participantRepo, groupRepo, uploader, logger)
	matchService := services.NewMatchService(tournamentRepo, participantRepo, groupRepo, matchRepo, matchParticipantRepo, logger)
	scoreService := services.NewScoreService(dbConn, matchRepo, matchParticipantRepo, throwRepo, wsHub, logger)
	confirmationService := services.NewConfirmationService(dbConn, matchRepo, matchParticipantRepo, throwRepo, confirmationRepo, statisticsRepo, logger)
	statisticsService := services.NewStatisticsService(tournamentRepo, statisticsRepo)

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, statisticsService)
	matchHandler := handlers.NewMatchHandler(matchService, confirmationService)
	scoreHandler := handlers.NewScoreHandler(scoreService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, matchService, logger)

	router := chi.NewRouter()
	routes.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		cfg.CORSOrigins,
		authHandler,
		tournamentHandler,
		matchHandler,
		scoreHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
