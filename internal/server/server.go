package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/inboxpilot/internal/logging"
)

// DefaultAddr is the default REST API listen address.
const DefaultAddr = ":8000"

const (
	readHeaderTimeout = 10 * time.Second
	// Manual runs and rule mutations execute a whole cycle in the request.
	writeTimeout = 10 * time.Minute
	idleTimeout  = 120 * time.Second
)

// HTTPServer serves the REST API.
type HTTPServer struct {
	mu      sync.Mutex
	addr    string
	handler http.Handler
	health  *HealthChecker
	logger  logging.Logger
	srv     *http.Server
}

// NewHTTPServer creates a server for handler on addr. health may be nil.
func NewHTTPServer(addr string, handler http.Handler, health *HealthChecker, logger logging.Logger) *HTTPServer {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &HTTPServer{addr: addr, handler: handler, health: health, logger: logger}
}

// StartWithReadySignal listens on the configured address, closes ready
// (when non-nil) once bound and serves until Shutdown.
func (s *HTTPServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	srv := s.srv
	s.mu.Unlock()

	s.logger.Info("starting REST API", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown marks the server as draining and stops it gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.MarkShuttingDown()
	}

	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down REST API")
	return srv.Shutdown(ctx)
}

// Addr returns the listen address; after start it is the bound address.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
