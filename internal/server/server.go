package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/membrane/internal/api/http"
	"github.com/GriffinCanCode/membrane/internal/api/middleware"
	"github.com/GriffinCanCode/membrane/internal/api/ws"
	"github.com/GriffinCanCode/membrane/internal/infrastructure/config"
	"github.com/GriffinCanCode/membrane/internal/infrastructure/logging"
	"github.com/GriffinCanCode/membrane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/membrane/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/membrane/internal/scenario"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	runner  *scenario.Runner
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	logger.Info("Initializing membrane server",
		zap.String("port", cfg.Server.Port),
		zap.String("scenario_dir", cfg.Scenarios.Dir),
		zap.Duration("realm_timeout", cfg.Realm.Timeout),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("membrane", logger.Component("tracing"))

	catalog, err := scenario.Load(cfg.Scenarios.Dir)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("load scenarios: %w", err)
	}
	logger.Info("Scenario catalog loaded", zap.Strings("scenarios", catalog.IDs()))

	runner, err := scenario.NewRunner(catalog, cfg.RunnerConfig(),
		scenario.WithLogger(logger.Component("runner")),
		scenario.WithObserver(metrics),
	)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("create runner: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
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

	handlers := apihttp.NewHandlers(runner, metrics)
	handlers.Register(router)

	wsHandler := ws.NewHandler(runner, metrics, logger.Component("ws"), ws.DefaultConfig())
	router.GET("/stream", wsHandler.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		runner:  runner,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops. A shutdown through
// Close is not an error.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := s.runner.Close(); err != nil {
		s.logger.Error("Failed to close runner", zap.Error(err))
		errs = append(errs, err)
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
