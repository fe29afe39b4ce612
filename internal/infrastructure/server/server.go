package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/chardev/chardevd/internal/api/http"
	"github.com/chardev/chardevd/internal/api/middleware"
	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/config"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/ws"
)

// Server wraps the HTTP server and the device table
type Server struct {
	router  *gin.Engine
	http    *http.Server
	manager *device.Manager
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// New creates a server instance with the default device registered
func New(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing chardevd",
		zap.String("port", cfg.Server.Port),
		zap.String("device", cfg.Device.Name),
	)

	// Initialize metrics first (devices record into them)
	metrics := monitoring.NewMetrics()

	// Initialize the device table and register the default node
	manager := device.NewManager(logger).WithMetrics(metrics)
	if _, err := manager.Register(cfg.Device.Name); err != nil {
		return nil, err
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(manager, logger)
	handlers.RegisterRoutes(router)

	// WebSocket streaming
	wsHandler := ws.NewHandler(manager, logger, metrics)
	router.GET("/devices/:name/stream", wsHandler.HandleConnection)

	// Health and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"devices": len(manager.List()),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		manager: manager,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Manager exposes the device table, used by tests and embedding callers
func (s *Server) Manager() *device.Manager {
	return s.manager
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server and tears down every device
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}

	// Device teardown discards unread messages, mirroring module unload
	s.manager.Close()

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
