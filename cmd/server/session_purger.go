package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sessionPurger is the slice of the session manager the worker needs.
type sessionPurger interface {
	PurgeExpired() error
}

type purgeTicker interface {
	C() <-chan time.Time
	Stop()
}

type tickerFactory func(time.Duration) purgeTicker

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

// startSessionPurgeWorker sweeps expired sessions on the given interval
// until the context is cancelled. The returned func blocks until the
// worker has drained.
func startSessionPurgeWorker(ctx context.Context, logger *slog.Logger, sessions sessionPurger, interval time.Duration) func() {
	return startSessionPurgeWorkerWithTicker(ctx, logger, sessions, interval, func(d time.Duration) purgeTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func startSessionPurgeWorkerWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	sessions sessionPurger,
	interval time.Duration,
	newTicker tickerFactory,
) func() {
	if sessions == nil || interval <= 0 {
		return func() {}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go runPurgeLoop(workerCtx, logger, sessions, newTicker(interval), done)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// runPurgeLoop sweeps on every tick. A failed sweep is logged and the next
// tick tries again.
func runPurgeLoop(ctx context.Context, logger *slog.Logger, sessions sessionPurger, ticker purgeTicker, done chan<- struct{}) {
	defer func() {
		ticker.Stop()
		close(done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := sessions.PurgeExpired(); err != nil && logger != nil {
				logger.Error("session purge sweep failed", "error", err)
			}
		}
	}
}
