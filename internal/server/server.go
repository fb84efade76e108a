// Package server wires the HTTP server: router, middleware, and routes.
// It is the composition root; every dependency chain is assembled in New
// and setupRoutes, nowhere else.
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

	"github.com/sakif/devfeed/internal/auth"
	"github.com/sakif/devfeed/internal/handler"
	"github.com/sakif/devfeed/internal/middleware"
	sqliteRepo "github.com/sakif/devfeed/internal/repository/sqlite"
	"github.com/sakif/devfeed/internal/service"
)

// Config holds server configuration, loaded from the environment by
// cmd/server.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// GitHub OAuth is optional. When the client ID or secret is empty the
	// OAuth routes are not registered; local accounts still work.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain:
// repositories, services, handlers, routes. Fails fast on a bad JWT
// secret or an unopenable database.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
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

// Handler returns the root HTTP handler. Tests mount this directly on an
// httptest server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's database connection. Start does this on
// shutdown; tests that never call Start use Close directly.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware and the route table.
//
// GET    /api/posts                           → global feed page
// POST   /api/posts                           → create post           (auth)
// GET    /api/posts/{id}                      → single post
// PUT    /api/posts/{id}                      → edit post             (auth, author)
// DELETE /api/posts/{id}                      → delete post           (auth, author)
// PUT    /api/posts/{id}/like                 → toggle like           (auth)
// POST   /api/posts/{id}/comment              → add comment           (auth)
// PUT    /api/posts/{id}/comments/{commentID} → edit comment          (auth, comment author)
// DELETE /api/posts/{id}/comments/{commentID} → delete comment        (auth, comment author)
// GET    /api/users/{username}                → public profile
// GET    /api/users/{username}/posts          → author feed page
// POST   /api/auth/register                   → local sign-up
// POST   /api/auth/login                      → local sign-in
// POST   /api/auth/logout                     → clear session
// GET    /api/auth/me                         → current user          (auth)
// GET    /api/auth/github/login               → OAuth redirect        (when configured)
// GET    /api/auth/github/callback            → OAuth callback        (when configured)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured, /api/auth/github routes disabled")
	}

	feedService := service.NewFeedService(s.db, s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)

	postHandler := handler.NewPostHandler(feedService, s.logger)
	userHandler := handler.NewUserHandler(authService, feedService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.HandleList)
			r.Get("/{id}", postHandler.HandleGetByID)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postHandler.HandleCreate)
				r.Put("/{id}", postHandler.HandleUpdate)
				r.Delete("/{id}", postHandler.HandleDelete)
				r.Put("/{id}/like", postHandler.HandleToggleLike)
				r.Post("/{id}/comment", postHandler.HandleAddComment)
				r.Put("/{id}/comments/{commentID}", postHandler.HandleUpdateComment)
				r.Delete("/{id}/comments/{commentID}", postHandler.HandleDeleteComment)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{username}", userHandler.HandleGetProfile)
			r.Get("/{username}/posts", userHandler.HandleListUserPosts)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.HandleMe)
			})

			if github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

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
