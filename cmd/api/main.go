package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/logger"
	"marketplace/internal/server"
	"marketplace/migrations"

	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight checkouts get 30 seconds to commit
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

func main() {
	migrationStatus := flag.Bool("migration-status", false, "print the migration status and exit")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting marketplace API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	db := dbService.DB()

	log.Info("Database health check", zap.Any("health", dbService.Health()))

	if *migrationStatus {
		if err := database.GetMigrationStatus(db, migrations.FS); err != nil {
			log.Fatal("Failed to read migration status", zap.Error(err))
		}
		dbService.Close()
		return
	}

	if err := database.RunMigrations(db, migrations.FS, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient := server.NewRedisClient(cfg.Redis)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis is unreachable, checkout rate limiting is disabled until it recovers", zap.Error(err))
	}
	cancelPing()

	srv, err := server.NewServer(cfg, log, dbService, redisClient)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go srv.PurgeTokensEvery(cleanupCtx, time.Hour)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
