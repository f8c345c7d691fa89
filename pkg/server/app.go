package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AleoRisk/pkg/config"
	xhttp "AleoRisk/pkg/http"
	applogger "AleoRisk/pkg/logger"
)

// Worker is a background component started before the HTTP server and
// stopped after it.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedWorker struct {
	name string
	w    Worker
}

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	workers    []namedWorker
	closers    []namedCloser
	started    []namedWorker
}

// New creates a new App instance.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l, httpServer: httpServer}
}

// AddWorker registers a background worker. Workers start in order and stop in reverse.
func (a *App) AddWorker(name string, w Worker) {
	if w != nil {
		a.workers = append(a.workers, namedWorker{name: name, w: w})
	}
}

// AddCloser registers a resource closed during shutdown, in reverse order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches workers, then the HTTP server.
func (a *App) Start(ctx context.Context) error {
	for _, nw := range a.workers {
		if err := nw.w.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", nw.name, err)
		}
		a.started = append(a.started, nw)
		a.log.Info("worker started", applogger.String("worker", nw.name))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("start http: %w", err)
		}
	}
	return nil
}

// Shutdown stops the HTTP server, drains started workers and closes resources.
// It keeps going past individual failures and returns the first one.
func (a *App) Shutdown(ctx context.Context) error {
	timeout := 15 * time.Second
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		timeout = a.cfg.Server.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.log.Info("shutting down")
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			keep(err)
		}
	}

	for i := len(a.started) - 1; i >= 0; i-- {
		nw := a.started[i]
		if err := nw.w.Stop(ctx); err != nil {
			a.log.Warn("worker stop error", applogger.String("worker", nw.name), applogger.Error(err))
			keep(fmt.Errorf("stop %s: %w", nw.name, err))
		}
	}
	a.started = nil

	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			keep(fmt.Errorf("close %s: %w", nc.name, err))
		}
	}
	a.closers = nil

	a.log.Info("shutdown complete")
	return first
}

// CloserFunc adapts a plain function to io.Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }
