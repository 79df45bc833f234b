package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TrendTracker/internal/service/ratelimit"
	"TrendTracker/pkg/logger"
)

// Scheduler is the background job runner owned by the App.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// HTTPServer is the API listener owned by the App.
type HTTPServer interface {
	Start() error
	Stop(ctx context.Context) error
	ShutdownTimeout() time.Duration
}

// Closer releases one infrastructure client at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	log        *logger.Logger
	scheduler  Scheduler
	httpServer HTTPServer
	limiter    *ratelimit.Limiter
	closers    []Closer
}

// New creates a new App. Closers run in reverse order on shutdown.
func New(
	log *logger.Logger,
	scheduler Scheduler,
	httpServer HTTPServer,
	limiter *ratelimit.Limiter,
	closers ...Closer,
) *App {
	return &App{
		log:        log.Named("app"),
		scheduler:  scheduler,
		httpServer: httpServer,
		limiter:    limiter,
		closers:    closers,
	}
}

// Run starts the scheduler and the HTTP server and blocks until SIGINT or
// SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with a caller-owned lifetime.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.scheduler.Start(runCtx); err != nil {
		a.log.Error("scheduler start error", logger.Error(err))
		a.closeAll()
		return fmt.Errorf("start scheduler: %w", err)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		a.scheduler.Stop()
		a.closeAll()
		return err
	}

	if a.limiter != nil {
		go a.pruneLimiter(runCtx)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	// In-flight cycles observe the cancellation and end at the next wait.
	cancel()
	return a.shutdown()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(); n > 0 {
				a.log.Debug("pruned idle rate limit buckets", logger.Int("count", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down")

	// HTTP first so no manual check can start while the scheduler drains.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	a.scheduler.Stop()

	a.closeAll()
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.log.Warn("close error", logger.String("resource", c.Name), logger.Error(err))
		}
	}
}
