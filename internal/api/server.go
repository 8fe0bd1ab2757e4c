// Package api exposes the Control API: the HTTP surface an operator (or the
// bundled CLI) uses to inspect and mutate the running Dynamic Router without
// restarting the process (spec.md §6).
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ccr-hq/gateway/internal/dynamicrouter"
	"ccr-hq/gateway/pkg/proxy/middleware"
	"ccr-hq/gateway/pkg/telemetry/health"
)

// Build information, overridden at link time by cmd/ccr via -ldflags.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// RestartFunc triggers the external process supervisor. The control API
// itself has no process-management capability; cmd/ccr wires this to
// whatever it uses to restart the service.
type RestartFunc func() error

// Options configures a Server.
type Options struct {
	Addr           string
	StaticToken    string
	JWTSecret      []byte
	RequestTimeout time.Duration
	CORS           *middleware.CORSConfig
	Restart        RestartFunc
	Logger         *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Addr == "" {
		o.Addr = ":3456"
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.CORS == nil {
		o.CORS = middleware.DefaultCORSConfig()
	}
	if o.Restart == nil {
		o.Restart = func() error { return fmt.Errorf("restart: no supervisor configured") }
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Server is the Control API's HTTP server, grounded on pkg/server/server.go's
// start/shutdown lifecycle (SPEC_FULL.md §6).
type Server struct {
	coord *dynamicrouter.Coordinator
	auth  *Authenticator

	requestTimeout time.Duration
	cors           *middleware.CORSConfig
	restart        RestartFunc
	logger         *slog.Logger

	httpServer *http.Server
	health     *health.Checker

	mu           sync.RWMutex
	isRunning    bool
	shutdownOnce sync.Once
}

// NewServer builds a Server. It does not start listening; call Start.
func NewServer(coord *dynamicrouter.Coordinator, opts Options) *Server {
	opts.applyDefaults()

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("coordinator", func(ctx context.Context) error {
		switch coord.GetState() {
		case dynamicrouter.StateFailed:
			return fmt.Errorf("dynamic router is in failed state")
		case dynamicrouter.StateUninitialized:
			return fmt.Errorf("dynamic router has not completed initial load")
		default:
			return nil
		}
	})

	return &Server{
		coord:          coord,
		auth:           NewAuthenticator(opts.StaticToken, opts.JWTSecret),
		requestTimeout: opts.RequestTimeout,
		cors:           opts.CORS,
		restart:        opts.Restart,
		logger:         opts.Logger,
		httpServer:     &http.Server{Addr: opts.Addr},
		health:         checker,
	}
}

// Start begins serving the Control API and blocks until the context is
// cancelled or the server stops for another reason.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("control api: already running")
	}
	s.isRunning = true
	s.httpServer.Handler = s.chain(s.routes())
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting control api", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("control api: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the Control API server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("control api shutdown: %w", err)
		}
		s.logger.Info("control api stopped")
	})
	return shutdownErr
}

// IsRunning reports whether the server is currently serving requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the fully wrapped HTTP handler, primarily for tests that
// exercise the API with httptest.Server/NewRequest directly.
func (s *Server) Handler() http.Handler {
	return s.chain(s.routes())
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /config", s.requireLevel(LevelRead, s.handleGetConfig))
	mux.HandleFunc("POST /config", s.requireLevel(LevelFull, s.handlePostConfig))
	mux.HandleFunc("POST /config/test", s.requireLevel(LevelFull, s.handleConfigTest))
	mux.HandleFunc("POST /config/hot-reload", s.requireLevel(LevelFull, s.handleHotReload))
	mux.HandleFunc("GET /config/status", s.requireLevel(LevelRead, s.handleConfigStatus))
	mux.HandleFunc("POST /config/validate", s.requireLevel(LevelFull, s.handleValidate))
	mux.HandleFunc("POST /config/rollback", s.requireLevel(LevelFull, s.handleRollback))
	mux.HandleFunc("GET /config/versions", s.requireLevel(LevelRead, s.handleListVersions))
	mux.HandleFunc("GET /config/diff/{from}/{to}", s.requireLevel(LevelRead, s.handleVersionDiff))

	mux.HandleFunc("GET /router-groups", s.requireLevel(LevelRead, s.handleListGroups))
	mux.HandleFunc("POST /router-groups/switch", s.requireLevel(LevelRead, s.handleSwitchGroup))
	mux.HandleFunc("GET /router-groups/{id}", s.requireLevel(LevelRead, s.handleGetGroup))

	mux.HandleFunc("POST /restart", s.requireLevel(LevelFull, s.handleRestart))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.health.LivenessHandler())
	mux.HandleFunc("GET /readyz", s.health.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(Version, GitCommit, BuildTime))

	return mux
}
