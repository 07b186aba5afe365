// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpserver runs an [http.Server] as a bedrock app.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Timeouts bounds the lifetime of a connection. A zero field uses its default.
type Timeouts struct {
	ReadHeader time.Duration `config:"read_header"`
	Read       time.Duration `config:"read"`
	Write      time.Duration `config:"write"`
	Idle       time.Duration `config:"idle"`
	Shutdown   time.Duration `config:"shutdown"`
}

// AppOptions
type AppOptions struct {
	errorLog slog.Handler
	timeouts Timeouts
}

// AppOption
type AppOption func(*AppOptions)

// ErrorLog routes errors reported by the server to h.
func ErrorLog(h slog.Handler) AppOption {
	return func(ao *AppOptions) {
		ao.errorLog = h
	}
}

// WithTimeouts
func WithTimeouts(t Timeouts) AppOption {
	return func(ao *AppOptions) {
		ao.timeouts = t
	}
}

// App serves HTTP on a listener until its context is cancelled.
type App struct {
	ls              net.Listener
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewApp initializes an [App].
func NewApp(ls net.Listener, h http.Handler, opts ...AppOption) *App {
	ao := &AppOptions{}
	for _, opt := range opts {
		opt(ao)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: or(ao.timeouts.ReadHeader, 2*time.Second),
		ReadTimeout:       or(ao.timeouts.Read, 5*time.Second),
		WriteTimeout:      or(ao.timeouts.Write, 30*time.Second),
		IdleTimeout:       or(ao.timeouts.Idle, 120*time.Second),
	}
	if ao.errorLog != nil {
		srv.ErrorLog = slog.NewLogLogger(ao.errorLog, slog.LevelError)
	}

	return &App{
		ls:              ls,
		server:          srv,
		shutdownTimeout: or(ao.timeouts.Shutdown, 10*time.Second),
	}
}

func or(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Shutdown gracefully stops the server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Run implements the [bedrock.App] interface.
func (a *App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx)

	p.Go(func(ctx context.Context) error {
		return a.server.Serve(a.ls)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
