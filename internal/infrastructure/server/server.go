package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/snippetlab/internal/api/http"
	"github.com/GriffinCanCode/snippetlab/internal/api/middleware"
	"github.com/GriffinCanCode/snippetlab/internal/api/ws"
	"github.com/GriffinCanCode/snippetlab/internal/catalog"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/config"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/snippetlab/internal/runner"
	"github.com/GriffinCanCode/snippetlab/internal/sandbox"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	catalog  *catalog.Catalog
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
	tracer   *tracing.Tracer
}

// NewServer indexes the snippet tree and builds the router
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing snippet server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("snippets", cfg.Snippets.Dir),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	cat, err := catalog.Open(ctx, catalog.Config{
		Root:     cfg.Snippets.Dir,
		Manifest: cfg.Snippets.Manifest,
	}, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open snippet catalog: %w", err)
	}
	for category, n := range cat.Counts() {
		metrics.SetSnippets(string(category), n)
	}

	tracer := tracing.New(logger.Logger)

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.MaxCallStackSize = cfg.Sandbox.MaxCallStackSize
	run := runner.New(cat, sandboxCfg, logger, metrics, runner.WithTracer(tracer))

	// Breakers only see TimedOut when a deadline is configured
	var eval runner.Evaluator = run
	if cfg.Sandbox.EvalTimeout > 0 {
		breakers := resilience.NewSet(resilience.Settings{
			Failures: cfg.Sandbox.BreakerFailures,
			Cooldown: cfg.Sandbox.BreakerCooldown,
			OnStateChange: func(name string, from, to resilience.State) {
				logger.Warn("Snippet breaker changed state",
					zap.String("snippet", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
				metrics.RecordBreakerTransition(to.String())
			},
		})
		eval = runner.Guarded(runner.Bounded(run, cfg.Sandbox.EvalTimeout), breakers, logger.Logger)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.UseRawPath = true
	router.SetHTMLTemplate(apihttp.ViewTemplate())

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(middleware.RequestLogger(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.HTTP.CORSOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(cat, eval, metrics, cfg.HTTP.SanitizeHTML, logger)
	handlers.Register(router)

	render := engine.HTML
	if cfg.HTTP.SanitizeHTML {
		policy := apihttp.Policy()
		render = func(res engine.Result) string { return policy.Sanitize(engine.HTML(res)) }
	}
	// eval already carries the deadline, so the stream's viewers add none
	wsHandler := ws.NewHandler(cat, eval, render, 0, metrics, logger)
	router.GET("/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	logger.Info("Server initialized successfully", zap.Int("snippets", len(cat.List())))

	return &Server{
		router:   router,
		handler:  compress(router),
		catalog:  cat,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
		tracer:   tracer,
	}, nil
}

// compress gzips responses for clients that accept it. WebSocket upgrades
// bypass the wrapper since they hijack the connection.
func compress(next http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close stops the tracer and flushes the logger
func (s *Server) Close() error {
	s.tracer.Close()
	_ = s.logger.Sync()
	return nil
}
