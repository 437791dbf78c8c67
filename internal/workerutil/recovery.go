// Package workerutil runs long-lived background workers that survive panics.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// RecoveryOptions configures RunWithPanicRecovery. Zero values use defaults
// (100ms initial backoff doubling up to 5s, 10 attempts).
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRetries bounds the total number of runs. 1 means no restart.
	MaxRetries int

	// OnPanic runs after each recovered panic with the 1-based attempt.
	OnPanic func(worker string, attempt int)
	// OnFatal runs once when the worker gives up after MaxRetries panics.
	OnFatal func(worker string, maxRetries int)
	// OnError runs when fn returns a non-nil error. The worker is not restarted.
	OnError func(worker string, err error)
}

func (opts RecoveryOptions) withDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	return opts
}

// RunWithPanicRecovery runs fn on a goroutine tracked by wg. A panic restarts
// fn after an exponential backoff; a normal return (or ctx cancellation)
// ends the worker.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	opts = opts.withDefaults()
	wg.Go(func() {
		runLoop(ctx, name, fn, opts)
	})
}

// runOnce reports whether fn panicked, and fn's error otherwise.
func runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] background worker recovered from panic",
				"worker", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			panicked = true
		}
	}()
	return false, fn(ctx)
}

func runLoop(ctx context.Context, name string, fn func(ctx context.Context) error, opts RecoveryOptions) {
	delay := opts.InitialBackoff
	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		panicked, err := runOnce(ctx, name, fn)
		if !panicked {
			if err != nil {
				slog.Warn("[WARN-WORKER] worker stopped with error", "worker", name, "error", err)
				if opts.OnError != nil {
					opts.OnError(name, err)
				}
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt)
		}
		if attempt == opts.MaxRetries {
			break
		}
		slog.Warn("[DEBUG-PANIC] restarting worker after panic",
			"worker", name, "attempt", attempt, "restartDelay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}
	slog.Error("[DEBUG-PANIC] worker exceeded max retries, giving up",
		"worker", name, "maxRetries", opts.MaxRetries)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// nextBackoff doubles current, capped at limit and safe against overflow.
func nextBackoff(current, limit time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > limit || next < current {
		return limit
	}
	return next
}
