// Package main is the entry point for the lead-relay HTTP proxy.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/handler"
	"github.com/costaleads/lead-relay/internal/middleware"
	"github.com/costaleads/lead-relay/internal/service"
	"github.com/costaleads/lead-relay/internal/twilio"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			_ = syncErr
		}
	}()

	// Secrets (Twilio credentials, PIN, VAPID keys) come from the
	// environment; a local .env is optional.
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file loaded", zap.Error(err))
	}

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	gateway := twilio.NewClient(&cfg.Twilio, logger)
	svc := service.NewService(cfg, gateway, redisClient, logger)

	h := handler.NewHandler(cfg, svc, logger)

	router := setupRouter(h, cfg)

	middlewareConfig := &middleware.Config{
		Logger:         logger,
		CORS:           middleware.DefaultCORSConfig(),
		RateLimit:      rate.Limit(cfg.Middleware.RateLimit),
		RateLimitBurst: cfg.Middleware.RateLimitBurst,
		RequestTimeout: 30 * time.Second,
	}
	if !cfg.Middleware.EnableCORS {
		middlewareConfig.CORS = nil
	}

	finalHandler := middleware.Chain(middlewareConfig)(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The subscription sweeper runs for the life of the process.
	if err := svc.Sweeper.Start(); err != nil {
		logger.Error("Failed to start subscription sweeper", zap.Error(err))
	}

	go func() {
		logger.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if svc.Sweeper.IsRunning() {
		if err := svc.Sweeper.Stop(); err != nil {
			logger.Error("Failed to stop subscription sweeper", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
