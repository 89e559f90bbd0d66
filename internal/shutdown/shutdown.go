// Package shutdown implements the signal-triggered graceful drain every
// service follows (spec.md §5): stop consuming, drain in-flight work,
// flush outstanding produces, close connections, all within a deadline.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Deadline is the maximum time a service waits for a clean drain before
// abandoning in-flight work and exiting (spec.md §5).
const Deadline = 30 * time.Second

// WaitForSignal returns, without blocking, a context derived from ctx that
// is cancelled when SIGINT or SIGTERM arrives; Run enforces the drain
// deadline around it.
func WaitForSignal(ctx context.Context) context.Context {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	_ = stop
	return sigCtx
}

// Run drives fn (the service's main consume loop) until the process
// receives an interrupt, then calls drain with a Deadline-bounded context
// and waits for it to return, logging if the deadline is exceeded.
func Run(logger *zap.Logger, fn func(ctx context.Context) error, drain func(ctx context.Context) error) error {
	rootCtx := WaitForSignal(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(rootCtx)
	}()

	select {
	case err := <-errCh:
		// The worker exited on its own (fatal control-plane error).
		drainAndLog(logger, drain)
		return err
	case <-rootCtx.Done():
		logger.Info("shutdown signal received, draining", zap.Duration("deadline", Deadline))
		drainAndLog(logger, drain)
		select {
		case err := <-errCh:
			return err
		case <-time.After(Deadline):
			logger.Warn("shutdown deadline exceeded, abandoning in-flight work")
			return nil
		}
	}
}

func drainAndLog(logger *zap.Logger, drain func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), Deadline)
	defer cancel()
	if err := drain(ctx); err != nil {
		logger.Error("error during shutdown drain", zap.Error(err))
	}
}
