package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/storefront/logger"
	"github.com/kbukum/storefront/server/endpoint"
	"github.com/kbukum/storefront/server/middleware"
)

// Server is an HTTP server backed by Gin and wrapped for HTTP/2 cleartext.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	shutdown bool
}

// New creates a Server. No socket is opened until Listen.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	h2s := &http2.Server{
		MaxConcurrentStreams: cfg.MaxConcurrentStreams,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log.WithComponent("server"),
	}
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the root HTTP handler, for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Listen binds the configured address. It does not accept connections;
// Serve does.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.log.Info("HTTP listener bound", map[string]interface{}{
		logger.FieldAddr: listener.Addr().String(),
	})
	return nil
}

// Serve accepts connections on the bound listener until ctx is canceled or
// Shutdown is called, in which case it returns nil. Shutdown may win the
// race with Serve; Serve then returns nil without accepting.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener, shutdown := s.listener, s.shutdown
	s.mu.Unlock()
	if shutdown {
		return nil
	}
	if listener == nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.New("server is not listening")
	}

	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }
	s.log.Info("HTTP server serving", map[string]interface{}{
		logger.FieldAddr: listener.Addr().String(),
	})
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests
// until ctx expires. If Serve never ran, the bound listener is closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.shutdown = true
	s.mu.Unlock()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("Server shutdown error", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if listener != nil {
		// Shutdown only closes listeners Serve has seen.
		_ = listener.Close()
	}

	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ApplyMiddleware applies the standard middleware stack to the Gin engine:
// recovery, request-ID and request logging.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(middleware.Recovery(s.log))
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.RequestLogger(s.log))
}

// RegisterDefaultEndpoints registers the standard /health and /info
// endpoints. state may be nil when no lifecycle is tracked.
func (s *Server) RegisterDefaultEndpoints(info endpoint.ServiceInfo, checker endpoint.HealthChecker, state endpoint.StateFunc) {
	s.engine.GET("/health", endpoint.Health(info, checker, state))
	s.engine.GET("/info", endpoint.Info(info))
}

// ApplyDefaults applies the standard middleware stack and registers default endpoints.
func (s *Server) ApplyDefaults(info endpoint.ServiceInfo, checker endpoint.HealthChecker, state endpoint.StateFunc) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(info, checker, state)
}
