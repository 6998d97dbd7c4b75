// Package resilience wraps remote capability calls with an explicit retry
// schedule. Providers make exactly one request per invocation; every retry
// decision lives here so the attempt count stays observable.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pablopedrosap/medical-ai-template/internal/ai"
	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
)

// ExhaustedError reports a capability call that failed through the whole
// retry schedule. Err is the error from the final attempt.
type ExhaustedError struct {
	Capability string
	Attempts   int
	Err        error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("capability %s: %d attempts exhausted: %v", e.Capability, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// SleepFunc waits for d or until ctx is done. Injectable for tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Caller executes capability calls with a fixed wait schedule: the wait
// before attempt i is schedule[i], clamped to the schedule's last entry.
// Only transient failures are retried; invalid-request and auth errors
// return immediately.
type Caller struct {
	maxAttempts int
	schedule    []time.Duration
	logger      zerolog.Logger
	metrics     *observability.Metrics
	sleep       SleepFunc
}

// NewCaller builds a Caller from the retry configuration.
func NewCaller(cfg config.RetryConfig, logger zerolog.Logger, metrics *observability.Metrics) *Caller {
	return &Caller{
		maxAttempts: cfg.MaxAttempts,
		schedule:    cfg.BackoffSchedule,
		logger:      logger,
		metrics:     metrics,
		sleep:       sleepContext,
	}
}

// WithSleep returns a copy of the caller using the given sleep function.
func (c *Caller) WithSleep(sleep SleepFunc) *Caller {
	clone := *c
	clone.sleep = sleep
	return &clone
}

// attemptLogger enriches the caller's logger with the job ID and stage
// carried on the activity context, when present.
func (c *Caller) attemptLogger(ctx context.Context) zerolog.Logger {
	logger := c.logger
	if jobID := observability.JobIDFromContext(ctx); jobID != "" {
		logger = logger.With().Str("job_id", jobID).Logger()
	}
	if stage := observability.StageFromContext(ctx); stage != "" {
		logger = logger.With().Str("stage", stage).Logger()
	}
	return logger
}

// waitFor returns the wait before the given zero-indexed attempt.
func (c *Caller) waitFor(attempt int) time.Duration {
	if len(c.schedule) == 0 {
		return 0
	}
	if attempt >= len(c.schedule) {
		return c.schedule[len(c.schedule)-1]
	}
	return c.schedule[attempt]
}

// Do runs fn through the caller's retry schedule and returns the first
// successful result. The model label is only used for metrics.
func Do[T any](ctx context.Context, c *Caller, capability, model string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	logger := c.attemptLogger(ctx)

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		wait := c.waitFor(attempt)
		if wait > 0 {
			logger.Debug().
				Str("capability", capability).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("waiting before capability attempt")
		}
		if err := c.sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("capability %s: wait interrupted: %w", capability, err)
		}

		start := time.Now()
		result, err := fn(ctx)
		elapsed := time.Since(start).Seconds()

		if err == nil {
			c.metrics.RecordCapabilityAttempt(capability, model, "success", elapsed)
			if attempt > 0 {
				logger.Info().
					Str("capability", capability).
					Int("attempt", attempt+1).
					Msg("capability call recovered after retry")
			}
			return result, nil
		}

		lastErr = err
		transient := ai.IsTransient(err)
		if ai.KindOf(err) == ai.KindRateLimited {
			c.metrics.RecordCapabilityRateLimited(capability)
		}

		outcome := "fatal_error"
		if transient {
			outcome = "transient_error"
		}
		c.metrics.RecordCapabilityAttempt(capability, model, outcome, elapsed)

		logger.Warn().
			Str("capability", capability).
			Int("attempt", attempt+1).
			Int("max_attempts", c.maxAttempts).
			Bool("transient", transient).
			Err(err).
			Msg("capability call failed")

		if !transient {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("capability %s: %w", capability, ctx.Err())
		}
	}

	c.metrics.RecordCapabilityExhausted(capability)
	logger.Error().
		Str("capability", capability).
		Int("attempts", c.maxAttempts).
		Err(lastErr).
		Msg("capability retry schedule exhausted")
	return zero, &ExhaustedError{Capability: capability, Attempts: c.maxAttempts, Err: lastErr}
}

// sleepContext waits for d, returning early when ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
