package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/rdesk/internal/api/http"
	"github.com/GriffinCanCode/rdesk/internal/api/middleware"
	"github.com/GriffinCanCode/rdesk/internal/api/ws"
	"github.com/GriffinCanCode/rdesk/internal/codec"
	"github.com/GriffinCanCode/rdesk/internal/host"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/rdesk/internal/peer"
	"github.com/GriffinCanCode/rdesk/internal/theme"
)

// Version is reported by the root and status endpoints
var Version = "dev"

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and the desktop
type Server struct {
	router  *gin.Engine
	http    *http.Server
	host    *host.Host
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	var viewerAuth gin.HandlerFunc
	if cfg.Server.PasswordHash != "" {
		auth, err := middleware.ViewerAuth(cfg.Server.PasswordHash)
		if err != nil {
			return nil, err
		}
		viewerAuth = auth
	}

	logger.Info("Initializing rdesk server",
		zap.String("addr", cfg.Address()),
		zap.Int("width", cfg.Desktop.Width),
		zap.Int("height", cfg.Desktop.Height),
		zap.Int("frame_rate", cfg.Desktop.FrameRate),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("rdesk", logger.Logger)

	th, err := theme.ResolveIn(cfg.Desktop.Theme, cfg.Desktop.ThemeDir)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("load theme %q: %w", cfg.Desktop.Theme, err)
	}
	sessionCfg, err := sessionConfig(cfg.Session)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	desk, err := host.New(host.Config{
		Width:         cfg.Desktop.Width,
		Height:        cfg.Desktop.Height,
		FrameInterval: cfg.FrameInterval(),
		Theme:         th,
		Session:       sessionCfg,
		Demo:          cfg.Desktop.Demo,
	}, logger.Logger, metrics)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...)))

	handlers := apihttp.NewHandlers(desk, metrics, Version)

	wsOpts := ws.DefaultOptions()
	wsOpts.SendQueue = cfg.Session.SendQueue
	wsHandler := ws.NewHandler(desk, wsOpts, logger.Logger)
	wsHandler.SetRecorder(metrics)
	wsHandler.SetTracer(tracer)

	connect := []gin.HandlerFunc{wsHandler.HandleConnection}
	if viewerAuth != nil {
		logger.Info("Viewer password required")
		connect = append([]gin.HandlerFunc{viewerAuth}, connect...)
	}
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		connect = append([]gin.HandlerFunc{middleware.RateLimit(limit)}, connect...)
	}

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/status", handlers.Status)
	router.GET("/metrics", handlers.Metrics)
	router.GET("/connect", connect...)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Address(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		host:    desk,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

// sessionConfig maps the environment toggles onto session negotiation
func sessionConfig(c config.SessionConfig) (peer.Config, error) {
	mode, err := peer.ParseDisplayMode(c.DisplayMode)
	if err != nil {
		return peer.Config{}, err
	}
	return peer.Config{
		DisplayMode:          mode,
		Clipboard:            c.Clipboard,
		Graphics:             c.Graphics,
		DynamicResize:        c.DynamicResize,
		MaxOutstandingFrames: c.MaxOutstandingFrames,
		Guard: codec.GuardSettings{
			Threshold: c.CodecFailures,
			Cooldown:  c.CodecCooldown,
		},
	}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Host returns the desktop
func (s *Server) Host() *host.Host {
	return s.host
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- s.host.Run(loopCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	}

	s.logger.Info("Shutting down server...")
	// Shutdown does not track hijacked WebSocket connections; ending the
	// loop closes them.
	stopLoop()
	if err := <-loopDone; err != nil {
		s.logger.Error("Desktop loop failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	return runErr
}

// Close releases the tracer and flushes the logger
func (s *Server) Close() error {
	s.tracer.Close()
	// Sync logger before exit
	return s.logger.Sync()
}
