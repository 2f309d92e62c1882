// Package httpapi exposes the relay over HTTP with gin: the webhook and
// manual entry points, dashboard queries, diagnostics and a live event
// stream.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	logx "xaubot/pkg/logx"
)

// ServerConfig is the resolved listener configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Server manages the lifecycle of the API listener.
type Server struct {
	mu      sync.Mutex
	log     logx.Logger
	handler http.Handler
	srv     *http.Server
	ln      net.Listener
	addr    string
	cfg     ServerConfig
	done    chan struct{}
}

func NewServer(handler http.Handler, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{handler: handler, log: log.With(logx.String("comp", "http"))}
}

// Start listens on cfg.Addr and serves in the background. Request contexts
// derive from ctx, so canceling it ends long-lived streams.
// Listen errors are returned; serve errors after that are logged.
func (s *Server) Start(ctx context.Context, cfg ServerConfig) error {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.srv, s.ln, s.cfg = srv, ln, cfg
	s.addr = ln.Addr().String()
	s.done = make(chan struct{})

	go func(done chan struct{}, addr string) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", logx.String("addr", addr), logx.Err(err))
		}
	}(s.done, s.addr)
	s.log.Info("http server listening", logx.String("addr", s.addr))
	return nil
}

// Stop gracefully shuts the listener down. Hijacked websocket connections
// are not tracked by Shutdown; they end when the Start context is canceled.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done, addr, timeout := s.srv, s.done, s.addr, s.cfg.ShutdownTimeout
	s.srv, s.ln, s.addr, s.done = nil, nil, "", nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := srv.Shutdown(sctx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("http shutdown error", logx.String("addr", addr), logx.Err(err))
		_ = srv.Close()
	} else {
		err = nil
	}
	<-done
	s.log.Info("http server stopped", logx.String("addr", addr))
	return err
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
