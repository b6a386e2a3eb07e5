package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/medreport/apiserver/config"
	"github.com/medreport/apiserver/internal/auth"
	"github.com/medreport/apiserver/internal/db"
	"github.com/medreport/apiserver/internal/handlers"
	"github.com/medreport/apiserver/internal/logging"
	"github.com/medreport/apiserver/internal/services"
	"github.com/medreport/apiserver/internal/storage"
	"github.com/medreport/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	blobs      *storage.Storage
	log        *zap.Logger
}

// New connects to the database and blob storage and builds the router.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	blobs, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	router := NewRouter(cfg, dbConn, blobs, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		blobs:      blobs,
		log:        log,
	}, nil
}

// NewRouter wires repositories, services and handlers over an open database
// and blob store.
func NewRouter(cfg config.Config, dbConn *sql.DB, blobs *storage.Storage, log *zap.Logger) *chi.Mux {
	userRepo := store.NewUserRepository(dbConn)
	fileRepo := store.NewFileRepository(dbConn)

	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:   []byte(cfg.JWT.Key),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Lifetime: cfg.JWT.Lifetime(),
	})
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	userService := services.NewUserService(userRepo, hasher, tokens, blobs, log)
	fileService := services.NewFileService(fileRepo, blobs, log)

	authMiddleware := handlers.RequireAuth(tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logging.Middleware(log),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, log)
	})
	router.Route("/files", func(r chi.Router) {
		handlers.FilesRouter(r, fileService, cfg.MaxUploadBytes, log, authMiddleware)
	})
	router.Route("/profile", func(r chi.Router) {
		handlers.ProfileRouter(r, userService, cfg.MaxUploadBytes, log, authMiddleware)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and then releases the database and storage clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.blobs != nil {
		_ = s.blobs.Close()
	}
	return err
}
