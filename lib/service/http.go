// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServer runs an http.Handler on a TCP listener until its context
// is cancelled, then drains in-flight requests. Routing, authentication
// and storage belong to the handler.
type HTTPServer struct {
	config HTTPServerConfig

	// ready is closed once the listener is bound.
	ready chan struct{}

	// addr is the bound address, valid after ready is closed.
	addr net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address (e.g., ":4873",
	// "127.0.0.1:0"). Required.
	Address string

	// Handler serves every request. Required.
	Handler http.Handler

	// Logger is the structured logger. Required. The net/http error
	// log (TLS handshake failures, handler panics) is routed here at
	// warn level.
	Logger *slog.Logger

	// ShutdownTimeout bounds the drain after cancellation.
	// Default: 10s.
	ShutdownTimeout time.Duration

	// TransferTimeout bounds reading a request and writing a response.
	// Artifact bodies are streamed, so this is much longer than the
	// header timeout. Default: 5m.
	TransferTimeout time.Duration

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

// NewHTTPServer validates config and returns an unstarted server.
// Missing required fields are programming errors and panic.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	switch {
	case config.Address == "":
		panic("service.HTTPServer: Address is required")
	case config.Handler == nil:
		panic("service.HTTPServer: Handler is required")
	case config.Logger == nil:
		panic("service.HTTPServer: Logger is required")
	case (config.TLSCertFile == "") != (config.TLSKeyFile == ""):
		panic("service.HTTPServer: TLSCertFile and TLSKeyFile must be set together")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.TransferTimeout <= 0 {
		config.TransferTimeout = 5 * time.Minute
	}
	return &HTTPServer{config: config, ready: make(chan struct{})}
}

// Ready is closed once the server is bound and accepting connections.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed;
// with port 0 it carries the port the OS assigned.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// Serve binds the listener and serves until ctx is cancelled. On
// cancellation it stops accepting connections and waits up to
// ShutdownTimeout for active requests. Request contexts derive from
// ctx.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	logger := s.config.Logger
	server := &http.Server{
		Handler:           s.config.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.TransferTimeout,
		WriteTimeout:      s.config.TransferTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	tls := s.config.TLSCertFile != ""
	logger.Info("http server listening", "address", s.addr.String(), "tls", tls)

	failed := make(chan error, 1)
	go func() {
		var err error
		if tls {
			err = server.ServeTLS(listener, s.config.TLSCertFile, s.config.TLSKeyFile)
		} else {
			err = server.Serve(listener)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down", "timeout", s.config.ShutdownTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		logger.Error("http server shutdown incomplete", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
