// Package retry runs remote calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"channel-insight/domain/model"
	"channel-insight/infrastructure/configuration"
	"channel-insight/infrastructure/logger"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// JitterFraction is the +/- fraction of each backoff added as jitter (0.0-1.0)
	JitterFraction float64
	// After waits out a backoff; nil means time.After. Tests pass a virtual clock.
	After func(d time.Duration) <-chan time.Time
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// FromConfiguration maps the worker's retry section
func FromConfiguration(c configuration.Retry) Config {
	return Config{
		MaxRetries:     c.MaxRetries,
		InitialBackoff: c.InitialBackoff,
		MaxBackoff:     c.MaxBackoff,
		Multiplier:     c.Multiplier,
		JitterFraction: c.JitterFraction,
	}
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// IsTransient retries only model.ErrTransientNetwork. Context errors of the
// caller are never retried.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, model.ErrTransientNetwork)
}

// Do executes fn until it succeeds, fails permanently, or MaxRetries retries
// are spent. The exhausted error wraps the last failure.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsTransient
	}

	after := cfg.After
	if after == nil {
		after = time.After
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !classifier(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		sleep := backoff + jitter(backoff, cfg.JitterFraction)
		if cfg.MaxBackoff > 0 && sleep > cfg.MaxBackoff {
			sleep = cfg.MaxBackoff
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"backoff": sleep.String(),
			"error":   err.Error(),
		}).Debug("Retrying remote call")

		select {
		case <-after(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// jitter returns a random duration in range [-fraction*d, +fraction*d].
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return 0
	}
	jitterRange := float64(d) * fraction
	return time.Duration((rand.Float64() - 0.5) * 2 * jitterRange)
}
