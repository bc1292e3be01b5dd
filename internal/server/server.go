// Package server exposes the practice engine over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
	"github.com/verte-zerg/codetype/internal/session"
)

const shutdownTimeout = 10 * time.Second

// Store is the persistence the server needs.
type Store interface {
	Credentials(ctx context.Context, username string) (model.User, string, error)
	CreateUser(ctx context.Context, username, passwordHash string) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	Categories(ctx context.Context) ([]string, error)
	ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionRecord, error)
	SaveSession(ctx context.Context, rec model.SessionRecord) (int64, error)
}

// Config holds listener settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server serves the JSON API and the practice WebSocket.
type Server struct {
	cfg      Config
	store    Store
	source   prompts.Source
	issuer   *identity.Issuer
	recorder *session.Recorder
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Server. Prompts are read from source.
func New(cfg Config, st Store, source prompts.Source, issuer *identity.Issuer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	s := &Server{
		cfg:      cfg,
		store:    st,
		source:   source,
		issuer:   issuer,
		recorder: session.NewRecorder(st, logger),
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(s.cfg.AllowedOrigins))
	r.Use(identity.Middleware(s.issuer))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/categories", s.handleCategories)
		r.Get("/prompts", s.handlePrompts)
		r.Group(func(r chi.Router) {
			r.Use(identity.RequireIdentity)
			r.Get("/me", s.handleMe)
			r.Get("/sessions", s.handleSessions)
		})
	})
	r.Get("/ws/practice", s.handlePractice)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
