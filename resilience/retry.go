package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the maximum delay between retries.
	// Default: 5s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// Jitter randomizes each delay by up to 25%.
	Jitter bool

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements retry with exponential backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	// Apply defaults
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs the operation with retry logic. A non-retryable error is
// returned as soon as it occurs; otherwise the last error is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	b := r.newBackOff(ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err != nil && !r.config.RetryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if r.config.OnRetry != nil {
		notify = func(err error, delay time.Duration) {
			r.config.OnRetry(attempt, err, delay)
		}
	}

	return backoff.RetryNotify(operation, b, notify)
}

func (r *Retry) newBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.config.InitialDelay
	exp.MaxInterval = r.config.MaxDelay
	exp.Multiplier = r.config.Multiplier
	exp.MaxElapsedTime = 0 // bounded by MaxAttempts
	exp.RandomizationFactor = 0
	if r.config.Jitter {
		exp.RandomizationFactor = 0.25
	}
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.config.MaxAttempts-1)), ctx)
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
