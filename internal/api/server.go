package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/ga4-insights/internal/api/handlers"
	"github.com/platformbuilds/ga4-insights/internal/api/middleware"
	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/monitoring"
	"github.com/platformbuilds/ga4-insights/internal/schema"
	"github.com/platformbuilds/ga4-insights/pkg/logger"
)

type Server struct {
	config      *config.Config
	logger      logger.Logger
	pipeline    handlers.Pipeline
	registry    *schema.Registry
	credentials handlers.CredentialState
	model       handlers.ModelInfo
	router      *gin.Engine
	httpServer  *http.Server
}

// NewServer wires the HTTP routes. model may be nil when no language model
// is configured.
func NewServer(
	cfg *config.Config,
	log logger.Logger,
	pipeline handlers.Pipeline,
	registry *schema.Registry,
	creds handlers.CredentialState,
	model handlers.ModelInfo,
) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:      cfg,
		logger:      log,
		pipeline:    pipeline,
		registry:    registry,
		credentials: creds,
		model:       model,
		router:      router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORSMiddleware(s.config.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))

	if s.config.Monitoring.Enabled {
		s.router.Use(middleware.MetricsMiddleware())
		s.router.Use(monitoring.HTTPMetricsMiddleware())
	}

	s.router.Use(middleware.ErrorHandler(s.logger))

	if s.config.Monitoring.Enabled && s.config.Monitoring.PrometheusEnabled {
		monitoring.SetupPrometheusMetrics(s.router, s.config.Monitoring.MetricsPath, config.ServiceVersion)
	}
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.credentials, s.model, s.config.GA4.PropertyID, s.logger)
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)

	ga4Handler := handlers.NewGA4Handler(s.pipeline, s.logger)
	s.router.POST("/ga4", ga4Handler.Query)

	v1 := s.router.Group("/api/" + config.APIVersion)
	v1.GET("/health", healthHandler.HealthCheck)
	v1.GET("/ready", healthHandler.ReadinessCheck)
	v1.POST("/ga4", ga4Handler.Query)

	schemaHandler := handlers.NewSchemaHandler(s.registry)
	v1.GET("/ga4/schema", schemaHandler.GetSchema)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a conversational request makes two model calls and a backend call
		WriteTimeout: s.config.GA4.Timeout*time.Duration(max(s.config.GA4.Retries, 1)) + 2*s.config.LLM.Timeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("GA4 insights API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down GA4 insights API gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(config.DefaultShutdownTimeout)*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
