// Package retry waits for a storage backend to come up, pinging it with
// exponential backoff until it answers or the overall deadline passes.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pinmap/internal/logger"
)

// Policy controls how long and how often a backend is pinged.
type Policy struct {
	Timeout       time.Duration // total time allowed for all attempts (ex: 30s)
	Initial       time.Duration // first wait between attempts, doubled each time (ex: 2s)
	MaxWait       time.Duration // cap on the wait between attempts (ex: 10s)
	PingTimeout   time.Duration // timeout of a single ping (ex: 5s)
	WarnThreshold int           // attempts logged as warnings before switching to errors
}

// Validate rejects policies that would spin or never try.
func (p Policy) Validate() error {
	switch {
	case p.Timeout <= 0:
		return fmt.Errorf("timeout must be > 0, got %v", p.Timeout)
	case p.Initial <= 0:
		return fmt.Errorf("initial wait must be > 0, got %v", p.Initial)
	case p.MaxWait <= 0:
		return fmt.Errorf("max wait must be > 0, got %v", p.MaxWait)
	case p.PingTimeout <= 0:
		return fmt.Errorf("ping timeout must be > 0, got %v", p.PingTimeout)
	case p.WarnThreshold < 0:
		return fmt.Errorf("warn threshold must be >= 0, got %d", p.WarnThreshold)
	}
	return nil
}

// PingFunc checks the backend once.
type PingFunc func(ctx context.Context) error

// Wait pings until success, returning the number of attempts made.
// It gives up when p.Timeout elapses or parent is cancelled.
func Wait(parent context.Context, name string, ping PingFunc, p Policy, log logger.Logger) (int, error) {
	if err := p.Validate(); err != nil {
		log.Error("invalid retry policy", logger.String("backend", name), logger.Error(err))
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(parent, p.Timeout)
	defer cancel()

	log = log.With(logger.String("backend", name))
	log.Info("connecting to storage", logger.Duration("timeout", p.Timeout))

	start := time.Now()
	wait := p.Initial
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, p.PingTimeout)
		err := ping(pingCtx)
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected")
			}
			return attempt, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("storage unavailable - giving up",
				logger.Int("attempts", attempt),
				logger.Duration("timeout", p.Timeout),
				logger.Error(err))
			return attempt, fmt.Errorf("%s unavailable after %d attempts (timeout: %v): %w",
				name, attempt, p.Timeout, err)

		case <-timer.C:
			logAttempt(log, attempt, timeLeft(ctx), wait, p.WarnThreshold, err)
			wait = min(wait*2, p.MaxWait)
		}
	}
}

func logAttempt(log logger.Logger, attempt int, remaining, waited time.Duration, warnThreshold int, err error) {
	fields := []logger.Field{
		logger.Int("attempt", attempt),
		logger.Duration("waited", waited),
		logger.Error(err),
	}
	switch {
	case remaining < 10*time.Second:
		log.Error("storage still down - timeout approaching",
			append(fields, logger.Duration("remaining", remaining))...)
	case attempt <= warnThreshold:
		log.Warn("storage connection failed, retrying", fields...)
	default:
		log.Error("storage still unavailable", fields...)
	}
}

func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
