// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config → store (sqlite | bolt) → services → handlers → chi router
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get service interfaces. Nothing below this package
// knows which store is in use.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/recipe-organizer/internal/auth"
	"github.com/sakif/recipe-organizer/internal/config"
	"github.com/sakif/recipe-organizer/internal/handler"
	"github.com/sakif/recipe-organizer/internal/middleware"
	"github.com/sakif/recipe-organizer/internal/repository"
	boltRepo "github.com/sakif/recipe-organizer/internal/repository/bolt"
	sqliteRepo "github.com/sakif/recipe-organizer/internal/repository/sqlite"
	"github.com/sakif/recipe-organizer/internal/service"
)

// Server owns the router and the open store. Close (or Start returning)
// releases the store.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  io.Closer
}

// stores is what an opened storage driver hands back.
type stores struct {
	users   repository.UserRepository
	recipes repository.RecipeRepository
	closer  io.Closer
}

// New validates cfg, opens the configured store and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// the secret is read once here and never changes for the life of the process
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	st, err := openStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Storage.Driver, err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  st.closer,
	}

	authService := service.NewAuthService(st.users, tokens, auth.NewPasswordService(cfg.Auth.BcryptCost), logger)
	recipeService := service.NewRecipeService(st.recipes, logger)

	s.setupRoutes(
		tokens,
		handler.NewAuthHandler(authService, logger),
		handler.NewRecipeHandler(recipeService, logger),
	)

	return s, nil
}

// openStore opens the document store named by cfg.Driver. File-backed
// stores get their parent directory created first.
func openStore(cfg config.Storage) (*stores, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &stores{users: db.Users(), recipes: db.Recipes(), closer: db}, nil
	case config.DriverBolt:
		db, err := boltRepo.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &stores{users: db.Users(), recipes: db.Recipes(), closer: db}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// setupRoutes installs middleware and routes.
//
// ROUTES:
//
//	POST   /api/auth/register   → register, returns {token}
//	POST   /api/auth/login      → login, returns {token}
//	GET    /api/auth/validate   → {valid: bool} for the bearer token
//	GET    /api/auth/me         → {email} (bearer token required)
//	GET    /api/recipes         → list
//	POST   /api/recipes         → create
//	PUT    /api/recipes/{id}    → update (null when missing)
//	DELETE /api/recipes/{id}    → delete (no-op when missing)
//
// MIDDLEWARE ORDER:
// RequestID first so the logger can print it; Logger wraps Recoverer so a
// recovered panic is logged with its 500; CORS last so preflights are
// answered (and logged) without reaching a handler.
func (s *Server) setupRoutes(tokens *auth.TokenService, authHandler *handler.AuthHandler, recipeHandler *handler.RecipeHandler) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.HTTP.AllowedOrigin))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/validate", authHandler.HandleValidate)
			r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", recipeHandler.HandleList)
			r.Post("/", recipeHandler.HandleCreate)
			r.Put("/{id}", recipeHandler.HandleUpdate)
			r.Delete("/{id}", recipeHandler.HandleDelete)
		})
	})
}

// Handler exposes the router, for httptest and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start calls it on the way out.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, give in-flight requests up to
// http.timeouts.shutdown to finish, then close the store.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.HTTP.Timeouts.Read,
		WriteTimeout: s.config.HTTP.Timeouts.Write,
		IdleTimeout:  s.config.HTTP.Timeouts.Idle,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.HTTP.Port),
			slog.String("storage", s.config.Storage.Driver),
			slog.String("path", s.config.Storage.Path),
			slog.String("allowedOrigin", s.config.HTTP.AllowedOrigin),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.HTTP.Timeouts.Shutdown)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
