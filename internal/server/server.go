// Package server wires the application together: it is the composition root
// where the database, services, handlers, and middleware are assembled into
// one chi router, and it owns startup and graceful shutdown.
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

	"github.com/oryahud/aForm/internal/auth"
	"github.com/oryahud/aForm/internal/handler"
	"github.com/oryahud/aForm/internal/mail"
	"github.com/oryahud/aForm/internal/middleware"
	sqliteRepo "github.com/oryahud/aForm/internal/repository/sqlite"
	"github.com/oryahud/aForm/internal/service"
)

// Config holds everything the server needs from the environment. main.go
// populates it; nothing below this package reads env vars directly.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	SessionSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// SMTP is optional: an empty Host disables the mailer and invites
	// report the email as not sent.
	SMTP mail.Config

	// DevLoginEnabled registers /dev-login, a local bypass around the
	// OAuth flow. Must stay off outside development.
	DevLoginEnabled bool
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: database, session signer, OAuth
// provider, optional mailer, services, handlers, routes. Each layer only
// receives the interfaces it needs — handlers never see the database.
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

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	sessions, err := auth.NewSessions(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating session signer: %w", err)
	}
	google := auth.NewGoogleProvider(
		s.config.GoogleClientID,
		s.config.GoogleClientSecret,
		s.config.GoogleCallbackURL,
	)

	// The mailer is optional; without SMTP config the collaborator service
	// gets a nil mailer and invites simply report the email as not sent.
	var mailer service.InviteMailer
	if s.config.SMTP.Host != "" {
		m, err := mail.New(s.config.SMTP, s.logger)
		if err != nil {
			return fmt.Errorf("creating mailer: %w", err)
		}
		mailer = m
	}

	users := s.db.Users()
	forms := s.db.Forms()

	authService := service.NewAuthService(users, s.logger)
	formService := service.NewFormService(forms, s.logger)
	collabService := service.NewCollaboratorService(forms, users, mailer, s.logger)

	authHandler := handler.NewAuthHandler(google, sessions, authService, s.logger)
	formHandler := handler.NewFormHandler(formService, s.logger)
	collabHandler := handler.NewCollaboratorHandler(collabService, s.logger)
	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, formService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Identity routes. /login and /login-page run with Optional so an
	// existing session redirects away instead of re-entering the flow.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.Optional(sessions))
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/login-page", pageHandler.HandleLoginPage)
	})
	s.router.Get("/auth/callback", authHandler.HandleCallback)
	s.router.Get("/logout", authHandler.HandleLogout)
	if s.config.DevLoginEnabled {
		s.logger.Warn("dev login endpoint enabled; do not run this in production")
		s.router.Get("/dev-login", authHandler.HandleDevLogin)
	}

	// Authenticated pages: anonymous visitors get a 302 to the login page.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(sessions))
		r.Get("/", pageHandler.HandleMyForms)
		r.Get("/my-forms", pageHandler.HandleMyForms)
		r.Get("/form/{name}", pageHandler.HandleFormEditor)
		r.Get("/form/{name}/submissions", pageHandler.HandleSubmissionsPage)
	})

	// The public submission surface: no session, published forms only.
	s.router.Get("/submit/{name}", pageHandler.HandleSubmitPage)
	s.router.Post("/api/form/{name}/submit", formHandler.HandleSubmit)

	// Authenticated APIs: anonymous requests get a 401 JSON error.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAPI(sessions))

		r.Post("/create-form", formHandler.HandleCreate)
		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/my-forms", formHandler.HandleMyForms)

		r.Route("/api/form/{name}", func(r chi.Router) {
			r.Post("/save", formHandler.HandleSave)
			r.Post("/question", formHandler.HandleAddQuestion)
			r.Post("/publish", formHandler.HandlePublish)
			r.Post("/hide", formHandler.HandleHide)
			r.Get("/submissions", formHandler.HandleSubmissions)
			r.Delete("/submission/{id}/delete", formHandler.HandleDeleteSubmission)
			r.Delete("/delete", formHandler.HandleDelete)

			r.Post("/invite", collabHandler.HandleInvite)
			r.Get("/collaborators", collabHandler.HandleList)
			r.Delete("/collaborators/{userId}", collabHandler.HandleRemove)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
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
