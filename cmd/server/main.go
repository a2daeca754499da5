// Package main is the entry point for the MergeQuest server.
//
// The main package stays minimal: read configuration, create the logger,
// start the application. All actual logic lives in internal/.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mergequest/mergequest/internal/server"
)

func main() {
	// Load .env if present. Real environment variables win over the file,
	// so production deployments simply don't ship one.
	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded configuration from .env")
	}

	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	port := envInt(logger, "PORT", 8080)

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/mergequest.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	callbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if callbackURL == "" {
		callbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", port)
	}

	cfg := server.Config{
		Port:   port,
		DBPath: dbPath,

		// JWT_SECRET must be a long random string: $(openssl rand -hex 32)
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  callbackURL,

		GitHubAPIURL:     os.Getenv("GITHUB_API_URL"),
		SyncPageSize:     envInt(logger, "SYNC_PAGE_SIZE", 100),
		SyncFetchTimeout: envDuration(logger, "SYNC_FETCH_TIMEOUT", 15*time.Second),
		SyncInterval:     envDuration(logger, "SYNC_INTERVAL", time.Hour),
		SyncBatchSize:    envInt(logger, "SYNC_BATCH_SIZE", 20),
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until shutdown (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envInt(logger *slog.Logger, key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Error("invalid integer env var", slog.String("key", key), slog.String("value", raw))
		os.Exit(1)
	}
	return v
}

func envDuration(logger *slog.Logger, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		logger.Error("invalid duration env var", slog.String("key", key), slog.String("value", raw))
		os.Exit(1)
	}
	return v
}
