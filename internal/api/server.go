package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/config"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/logging"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

const (
	// gracefulShutdownTimeout bounds Close.
	gracefulShutdownTimeout = 10 * time.Second

	// WebSocket keepalive defaults, in seconds.
	defaultPingInterval = 30
	defaultPongTimeout  = 10
)

// HealthChecker is implemented by the optional infrastructure clients
// (database, MQTT, InfluxDB) reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Platform *todo.Platform
	Store    *ordering.Store

	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Checks are reported by name on /health.
	Checks  map[string]HealthChecker
	Version string
}

// Server is the HTTP API server.
//
// Thread Safety: All methods are safe for concurrent use.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	platform *todo.Platform
	store    *ordering.Store
	metrics  http.Handler
	checks   map[string]HealthChecker
	version  string

	hub    *Hub
	server *http.Server
	cancel context.CancelFunc
}

// New creates a server and hooks platform and store events into its
// WebSocket hub. Nothing listens until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Platform == nil {
		return nil, fmt.Errorf("platform is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("ordering store is required")
	}

	if deps.WS.PingInterval <= 0 {
		deps.WS.PingInterval = defaultPingInterval
	}
	if deps.WS.PongTimeout <= 0 {
		deps.WS.PongTimeout = defaultPongTimeout
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		platform: deps.Platform,
		store:    deps.Store,
		metrics:  deps.Metrics,
		checks:   deps.Checks,
		version:  deps.Version,
	}
	s.hub = NewHub(deps.WS, deps.Logger)
	s.subscribeEvents()
	return s, nil
}

// subscribeEvents forwards entity events and ordering changes to the hub.
func (s *Server) subscribeEvents() {
	s.platform.AddListener(func(ev todo.Event) {
		s.hub.Broadcast(ChannelItemsChanged, ev)
		if ev.Kind == todo.EventItemMoved {
			s.hub.Broadcast(ChannelOrderingUpdated, s.store.Snapshot())
		}
	})
	s.store.AddListener(func(record ordering.Record) {
		s.hub.Broadcast(ChannelOrderingUpdated, record)
	})
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the listener in the background. ctx bounds the hub, not
// the listener; use Close to stop.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close stops the hub and shuts the listener down, waiting up to
// gracefulShutdownTimeout for in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether Start has run.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
