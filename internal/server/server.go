// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where handlers,
// services, repositories and middleware are assembled and connected to URL
// patterns. All actual behaviour lives in the packages being wired.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go reads env config → passes server.Config here
//	New() creates: sqlite.DB → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below this package knows
// the concrete types above it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mergequest/mergequest/internal/auth"
	"github.com/mergequest/mergequest/internal/github"
	"github.com/mergequest/mergequest/internal/handler"
	"github.com/mergequest/mergequest/internal/middleware"
	sqliteRepo "github.com/mergequest/mergequest/internal/repository/sqlite"
	"github.com/mergequest/mergequest/internal/service"
	"github.com/mergequest/mergequest/internal/worker"
)

// Config holds server configuration, resolved by main.go from the
// environment.
type Config struct {
	Port   int
	DBPath string

	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	GitHubAPIURL     string        // override for tests; empty means the real endpoint
	SyncPageSize     int           // PRs fetched per sync pass
	SyncFetchTimeout time.Duration // budget for the GitHub fetch phase
	SyncInterval     time.Duration // background re-sync period; 0 disables the worker
	SyncBatchSize    int           // users per background batch
}

// Server owns the router, the database connection and the background
// worker. Both resources are released during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	worker *worker.SyncWorker
}

// New assembles the full dependency chain and registers all routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("server: JWT secret is required")
	}
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, fmt.Errorf("server: GitHub OAuth credentials are required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires services to handlers and handlers to URL patterns.
//
// ROUTE MAP:
//
//	GET    /healthz                   → liveness probe
//	GET    /auth/github/login         → start OAuth flow
//	GET    /auth/github/callback      → complete OAuth flow
//	POST   /auth/logout               → clear session cookie
//	GET    /api/me                    → current user          (auth)
//	POST   /api/sync/{githubID}       → run reconciliation    (auth)
//	GET    /api/users/leaderboard     → ranked users
//	GET    /api/users/{githubID}      → public profile
//	DELETE /api/users/{id}            → delete account        (auth)
//	GET    /api/stats/{githubID}      → monthly point history
//	GET    /api/badges/available      → badge catalog
//	GET    /api/badges/user/{userID}  → a user's badges
//	POST   /api/badges/award          → manual award          (auth)
//	DELETE /api/badges/{badgeID}      → revoke a badge        (auth)
//
// MIDDLEWARE ORDER MATTERS: RequestID and RealIP first so the logger sees
// them, Recoverer before anything that can panic.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	githubOAuth := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)
	githubClient := github.NewClient(github.Config{
		APIBaseURL:   s.config.GitHubAPIURL,
		PageSize:     s.config.SyncPageSize,
		FetchTimeout: s.config.SyncFetchTimeout,
	})

	authService := service.NewAuthService(s.db.Users(), tokens, s.logger)
	badgeService := service.NewBadgeService(s.db.Badges(), s.db.Users(), s.logger)
	userService := service.NewUserService(s.db.Users(), s.db.PullRequests(), s.db.Badges(), s.logger)
	syncService := service.NewSyncService(s.db.Users(), s.db.PullRequests(), badgeService, githubClient, s.logger)

	authHandler := handler.NewAuthHandler(githubOAuth, authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	badgeHandler := handler.NewBadgeHandler(badgeService, s.logger)
	syncHandler := handler.NewSyncHandler(syncService, s.logger)

	if s.config.SyncInterval > 0 {
		s.worker = worker.NewSyncWorker(s.db.Users(), syncService, s.config.SyncInterval, s.config.SyncBatchSize, s.logger)
	}

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public reads. OptionalAuth attaches the identity when a session
		// exists so the frontend can highlight the viewer's own rows.
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/users/leaderboard", userHandler.HandleLeaderboard)
		r.Get("/users/{githubID}", userHandler.HandleGetProfile)
		r.Get("/stats/{githubID}", userHandler.HandleStats)
		r.Get("/badges/available", badgeHandler.HandleCatalog)
		r.Get("/badges/user/{userID}", badgeHandler.HandleUserBadges)

		// State-changing routes require a valid session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Post("/sync/{githubID}", syncHandler.HandleSync)
			r.Delete("/users/{id}", userHandler.HandleDelete)
			r.Post("/badges/award", badgeHandler.HandleAward)
			r.Delete("/badges/{badgeID}", badgeHandler.HandleRevoke)
		})
	})

	return nil
}

// Start starts the HTTP server, the background sync worker, and handles
// graceful shutdown.
//
// SHUTDOWN ORDER:
//  1. Stop accepting new HTTP connections; drain in-flight requests (30s)
//  2. Stop the sync worker, waiting for a running batch
//  3. Close the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	if s.worker != nil {
		if err := s.worker.Start(); err != nil {
			return fmt.Errorf("starting sync worker: %w", err)
		}
		defer func() {
			if err := s.worker.Stop(); err != nil {
				s.logger.Error("sync worker shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
