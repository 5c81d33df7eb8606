// Package server sets up the dashboard HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mbd888/trustboard/internal/circuitbreaker"
	"github.com/mbd888/trustboard/internal/config"
	"github.com/mbd888/trustboard/internal/fetchlog"
	"github.com/mbd888/trustboard/internal/health"
	"github.com/mbd888/trustboard/internal/logging"
	"github.com/mbd888/trustboard/internal/metrics"
	"github.com/mbd888/trustboard/internal/oracle"
	"github.com/mbd888/trustboard/internal/ratelimit"
	"github.com/mbd888/trustboard/internal/realtime"
	"github.com/mbd888/trustboard/internal/security"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	oracle       *oracle.Client
	breaker      *circuitbreaker.Breaker
	fetchLog     fetchlog.Store
	recorder     *fetchlog.Recorder
	realtimeHub  *realtime.Hub
	limiter      *ratelimit.Limiter
	health       *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	httpClient   *http.Client
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFetchLog sets a custom fetch log store (for testing)
func WithFetchLog(store fetchlog.Store) Option {
	return func(s *Server) {
		s.fetchLog = store
	}
}

// WithHTTPClient sets the client used to reach the oracle (for testing)
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) {
		s.httpClient = hc
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
		health: health.NewRegistry(),
	}

	// Apply options first (may set logger/fetch log)
	for _, opt := range opts {
		opt(s)
	}

	// Fetch log storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if s.fetchLog == nil {
		if cfg.DatabaseURL != "" {
			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}

			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(2)
			db.SetConnMaxLifetime(5 * time.Minute)

			if err := db.Ping(); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			s.db = db
			store := fetchlog.NewPostgresStore(db)
			s.fetchLog = store
			s.health.Register("fetchlog", health.PingCheck("fetchlog", store.Ping))
			s.logger.Info("using PostgreSQL fetch log", "url", maskDSN(cfg.DatabaseURL))
		} else {
			s.fetchLog = fetchlog.NewMemoryStore(fetchlog.MaxLimit)
			s.logger.Info("using in-memory fetch log")
		}
	}
	s.recorder = fetchlog.NewRecorder(s.fetchLog, 256, s.logger)

	// Trust oracle client, one breaker circuit per endpoint
	s.breaker = circuitbreaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown)
	clientOpts := []oracle.Option{
		oracle.WithBreaker(s.breaker),
		oracle.WithObserver(s.recorder.Observe),
		oracle.WithLogger(s.logger),
	}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, oracle.WithHTTPClient(s.httpClient))
	}
	clientOpts = append(clientOpts, oracle.WithTimeout(cfg.TrustAPITimeout))
	s.oracle = oracle.NewClient(cfg.TrustAPIURL, clientOpts...)
	s.health.Register("oracle", health.BreakerCheck("oracle", s.breaker))
	s.logger.Info("trust oracle configured", "url", s.oracle.BaseURL(), "timeout", cfg.TrustAPITimeout)

	s.realtimeHub = realtime.NewHub(s.oracle, cfg.MaxLiveClients, s.logger)
	s.limiter = ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitRPM,
		BurstSize:         cfg.RateLimitBurst,
	})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware(s.cfg.CORSOrigins))
	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Debug("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Pages
	s.router.GET("/", overviewPageHandler)
	s.router.GET("/leaderboard", leaderboardPageHandler)
	s.router.GET("/debug", debugPageHandler)

	// Routes below call the oracle and share the per-IP limit
	limited := s.limiter.Middleware()

	// View models
	views := s.router.Group("/api/v1/views", limited)
	{
		views.GET("/overview", s.overviewHandler)
		views.GET("/leaderboard", s.leaderboardHandler)
	}

	// Live leaderboard sessions
	s.router.GET("/ws/leaderboard", limited, func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// Fetch log
	s.router.GET("/debug/fetches", s.fetchesHandler)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.writeTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "oracle", s.oracle.BaseURL())
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)
	go s.recorder.Run(runCtx)
	go s.limiter.Run(runCtx)
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// writeTimeout leaves room for one oracle round trip behind the view endpoints.
func (s *Server) writeTimeout() time.Duration {
	if s.cfg.TrustAPITimeout <= 0 {
		return 0
	}
	return s.cfg.TrustAPITimeout + 5*time.Second
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for background goroutines (hub, recorder, limiter, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Let the recorder flush buffered entries before the pool closes
	select {
	case <-s.recorder.Done():
	case <-ctx.Done():
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Oracle returns the trust oracle client.
func (s *Server) Oracle() *oracle.Client {
	return s.oracle
}
