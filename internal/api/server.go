package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"option-calc-go/internal/config"
	"option-calc-go/internal/database"
)

// Server provides the HTTP interface for the valuation engine.
type Server struct {
	server  *http.Server
	router  *gin.Engine
	handler *Handler
	logger  *zap.Logger
}

// NewServer wires the routes and middleware. profiles and metrics may be nil.
func NewServer(cfg *config.Config, logger *zap.Logger, engine Calculator, profiles database.FeeProfileRepository, metrics *Metrics) *Server {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	logger = logger.Named("api-server")

	h := NewHandler(logger, engine, profiles, metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger, metrics))
	r.Use(CORSMiddleware())

	api := r.Group("/api")
	api.Use(RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateLimitBurst))
	{
		api.POST("/calc", h.Calc)
		api.GET("/fee-profiles", h.FeeProfiles)
		api.GET("/conventions", h.Conventions)
	}

	r.GET("/health", h.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: r,
		},
		router:  r,
		handler: h,
		logger:  logger,
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Run serves until the server is shut down.
func (s *Server) Run() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.Run(); err != nil {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
