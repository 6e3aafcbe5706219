package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "Aegis/pkg/http"
	applogger "Aegis/pkg/logger"
)

// Runner is a long-lived loop that stops when its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// App encapsulates the entire application lifecycle.
type App struct {
	log             *applogger.Logger
	runner          Runner
	httpServer      *xhttp.Server
	shutdownTimeout time.Duration
}

// New creates a new App. httpServer may be nil when the API is disabled.
// Infrastructure clients are released by the injector's cleanup.
func New(log *applogger.Logger, runner Runner, httpServer *xhttp.Server, shutdownTimeout time.Duration) *App {
	if log == nil {
		log = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{
		log:             log.Component("app"),
		runner:          runner,
		httpServer:      httpServer,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the HTTP server and the runner, waits for ctx to end and
// then shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}

	done := make(chan error, 1)
	go func() { done <- a.runner.Run(ctx) }()
	a.log.Info("pipeline started")

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		runErr = <-done
	case runErr = <-done:
		if runErr != nil {
			a.log.Error("pipeline stopped", applogger.Error(runErr))
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown gracefully stops the HTTP server.
func (a *App) shutdown() error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}
	return nil
}
