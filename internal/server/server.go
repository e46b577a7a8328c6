package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"policytask/internal/logger"
	"policytask/internal/prompt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server represents the HTTP API server over the task store
type Server struct {
	echo      *echo.Echo
	port      int
	apiKey    string
	startTime time.Time
	server    *http.Server
	handlers  *Handlers
	log       *zap.Logger
}

// Config contains server configuration
type Config struct {
	Port              int
	APIKey            string
	DefaultMaxAgeDays int

	// AfterCreate runs after a task file is written; an error is logged, the
	// task is still reported as created
	AfterCreate func(ctx context.Context, id string, category prompt.Category, path string) error
}

// NewServer creates a new HTTP API server for the given store
func NewServer(ctx context.Context, store TaskStore, config Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:      e,
		port:      config.Port,
		apiKey:    config.APIKey,
		startTime: time.Now(),
		log:       logger.FromContext(ctx),
	}

	server.handlers = NewHandlers(store, server.startTime, config.DefaultMaxAgeDays)
	server.handlers.afterCreate = config.AfterCreate

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures Echo middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	// Rate limiting middleware (100 requests per second per IP)
	s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(100)))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			s.log.Debug("HTTP request", fields...)
			return nil
		},
	}))

	s.echo.Use(middleware.Recover())

	// handlers log through the request context
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithLogger(req.Context(), s.log)))
			return next(c)
		}
	})

	// API Key authentication middleware (optional)
	if s.apiKey != "" {
		s.echo.Use(s.apiKeyMiddleware)
	}
}

// apiKeyMiddleware validates API key if configured
func (s *Server) apiKeyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/health" {
			return next(c)
		}
		apiKey := c.Request().Header.Get("X-API-Key")
		if apiKey == "" || apiKey != s.apiKey {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or missing API key")
		}
		return next(c)
	}
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.handlers.GetHealth)

	s.echo.GET("/tasks", s.handlers.GetTasks)
	s.echo.POST("/tasks", s.handlers.CreateTask)
	s.echo.GET("/tasks/pending", s.handlers.GetPending)
	s.echo.GET("/tasks/next", s.handlers.GetNext)
	s.echo.GET("/tasks/:name", s.handlers.GetTask)

	s.echo.POST("/cleanup", s.handlers.Cleanup)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server in the background
func (s *Server) Start(ctx context.Context) error {
	lgr := logger.FromContext(ctx)

	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(s.port),
		Handler:      s.echo,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	lgr.Info("Starting HTTP API server",
		zap.Int("port", s.port),
		zap.Bool("auth", s.apiKey != ""),
		zap.String("address", s.GetURL()))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	lgr := logger.FromContext(ctx)

	if s.server == nil {
		return nil
	}

	lgr.Info("Stopping HTTP API server", zap.Int("port", s.port))

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		lgr.Error("Error during server shutdown", zap.Error(err))
		return err
	}

	lgr.Info("HTTP API server stopped successfully")
	return nil
}

// Port returns the server port
func (s *Server) Port() int {
	return s.port
}

// GetURL returns the base URL for the server
func (s *Server) GetURL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}
