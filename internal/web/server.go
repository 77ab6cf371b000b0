// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/educk/educk/internal/logger"
)

// Server timeouts applied to every [Server].
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second

	defaultShutdownTimeout = 30 * time.Second
)

// Server is used to configure the HTTP server started by
// [Server.ListenAndServe].
//
// All fields of Server can't be modified after [Server.ListenAndServe] or
// [Server.Serve] is called.
type Server struct {
	// Addr is a network address to listen on (in the form of "host:port").
	Addr string
	// Mux is a http.ServeMux to serve.
	Mux *http.ServeMux
	// Logger specifies a logger to use. If nil, the log output is discarded.
	Logger *logger.Leveled
	// Debuggable specifies whether to register debug handlers at /debug/.
	Debuggable bool
	// Streamer, if set together with Debuggable, is served at /debug/log.
	Streamer logger.Streamer
	// Middleware wraps Mux. The first element is the outermost.
	Middleware []Middleware
	// Ready, if set, is called once the listener accepts connections.
	Ready func(addr net.Addr)
	// ShutdownTimeout bounds the time in-flight requests have to finish
	// once the context passed to ListenAndServe is canceled. Defaults to 30
	// seconds.
	ShutdownTimeout time.Duration

	initOnce sync.Once
}

// BindError is returned by [Server.ListenAndServe] when the listener can't be
// created.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string { return fmt.Sprintf("failed to listen on %s: %v", e.Addr, e.Err) }

func (e *BindError) Unwrap() error { return e.Err }

var (
	errNoAddr = errors.New("s.Addr is empty")
	errNilMux = errors.New("s.Mux is nil")
)

// ListenAndServe binds s.Addr and serves HTTP on it until ctx is canceled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.Addr == "" {
		return errNoAddr
	}
	if s.Mux == nil {
		return errNilMux
	}

	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return &BindError{Addr: s.Addr, Err: err}
	}
	return s.Serve(ctx, l)
}

// Serve is like [Server.ListenAndServe], but accepts connections on the
// provided listener. Serve closes l when it returns.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	defer l.Close()
	if s.Mux == nil {
		return errNilMux
	}
	s.Logger.Infof("Listening on %s...", l.Addr().String())

	var handler http.Handler = s.Mux
	for i := len(s.Middleware) - 1; i >= 0; i-- {
		handler = s.Middleware[i](handler)
	}

	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          log.New(s.Logger.At(logger.LevelWarn), "", 0),
		BaseContext: func(net.Listener) context.Context {
			return ContextWithLogger(context.WithoutCancel(ctx), s.Logger)
		},
	}
	s.initOnce.Do(func() { s.initInternalRoutes(httpSrv) })

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.Ready != nil {
		s.Ready(l.Addr())
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Logger.Infof("Gracefully shutting down...")

		timeout := s.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				s.Logger.Warnf("Shutdown grace period of %v exceeded, closing remaining connections.", timeout)
				httpSrv.Close()
				return nil
			}
			return err
		}
	}

	return nil
}

func (s *Server) initInternalRoutes(httpSrv *http.Server) {
	Health(s.Mux)
	if !s.Debuggable {
		return
	}
	dbg := Debugger(s.Mux)
	dbg.Handle("conns", "Connections", Conns(httpSrv))
	if s.Streamer != nil {
		dbg.Handle("log", "Logs", s.Streamer)
	}
}
