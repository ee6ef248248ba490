// Package server wires the application together: database, services,
// handlers, middleware, and routes, plus the serve-and-shutdown loop.
// It is the composition root; nothing else constructs dependencies.
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
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecanov/bienestar-api/internal/auth"
	"github.com/ecanov/bienestar-api/internal/calendar"
	"github.com/ecanov/bienestar-api/internal/config"
	"github.com/ecanov/bienestar-api/internal/gemini"
	"github.com/ecanov/bienestar-api/internal/handler"
	"github.com/ecanov/bienestar-api/internal/metrics"
	"github.com/ecanov/bienestar-api/internal/middleware"
	sqliteRepo "github.com/ecanov/bienestar-api/internal/repository/sqlite"
	"github.com/ecanov/bienestar-api/internal/service"
)

// Server owns the router and the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the whole dependency chain: database, token and password
// services, domain services, handlers, and routes. Each layer receives
// interfaces or services, never the layers below them.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Global middleware, in execution order.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(collector))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Core auth stack.
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(s.db, passwords, s.logger)

	var googleProvider *auth.GoogleProvider
	if s.cfg.GoogleEnabled() {
		googleProvider = auth.NewGoogleProvider(
			s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.GoogleRedirectURI)
	}

	// Domain services.
	moodService := service.NewMoodService(s.db, s.logger)
	communityService := service.NewCommunityService(s.db, s.logger)

	calendarClient := calendar.New(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.logger)

	var aiClient service.AIClient
	if s.cfg.GeminiAPIKey != "" {
		aiClient = gemini.New(s.cfg.GeminiAPIKey, s.logger)
	} else {
		s.logger.Warn("GOOGLE_API_KEY not set, chat runs in simulated mode")
	}
	chatService := service.NewChatService(aiClient, calendarClient, s.logger)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService, tokens, googleProvider, collector, s.cfg, s.logger)
	moodHandler := handler.NewMoodHandler(moodService, s.logger)
	communityHandler := handler.NewCommunityHandler(communityService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, calendarClient, collector, s.logger)

	requireAuth := auth.RequireAuth(tokens, authService)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"message":"Bienestar Docente API"}`)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/token", authHandler.HandleToken)

		// Everything below requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/users/me", authHandler.HandleMe)

			r.Get("/mood", moodHandler.HandleList)
			r.Post("/mood", moodHandler.HandleCreate)

			r.Get("/community", communityHandler.HandleList)
			r.Post("/community", communityHandler.HandleCreate)

			r.Post("/chat", chatHandler.HandleChat)
			r.Get("/calendar", chatHandler.HandleCalendar)
		})
	})

	if s.cfg.GoogleEnabled() {
		s.router.Get("/auth/google", authHandler.HandleGoogleLogin)
		s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	} else {
		s.logger.Warn("google credentials not set, google login routes disabled")
	}

	s.router.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests
// and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // chat replies wait on the model
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
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
