// Package retry provides exponential-backoff retry for network calls
// against the price and gas APIs.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	embererr "github.com/mrz1836/embersend/pkg/errors"
)

// Sentinel errors for retry classification.
var (
	ErrRetryable = &embererr.EmberError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: embererr.ExitGeneral,
	}

	ErrRateLimited = &embererr.EmberError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited",
		ExitCode: embererr.ExitGeneral,
	}
)

// Config configures retry behavior.
type Config struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial delay between retries
	MaxDelay    time.Duration // Maximum delay between retries
}

// DefaultConfig returns the default retry configuration.
// 3 attempts total with delays 500ms, 1s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do executes the operation with the default configuration.
func Do[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	return DoWithConfig(ctx, DefaultConfig(), operation)
}

// DoWithConfig executes the operation with the specified retry
// configuration. Only errors marked retryable trigger another attempt.
func DoWithConfig[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			return result, nil
		}

		if !IsRetryable(err) {
			return result, err
		}

		// Don't delay after the last attempt
		if attempt < cfg.MaxAttempts-1 {
			timer := time.NewTimer(calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return result, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxAttempts, err)
}

// calculateDelay computes exponential backoff with jitter for the attempt.
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay * (1 << attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	// Jitter: random duration in [delay/2, delay).
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half))) //nolint:gosec // G404: jitter does not need crypto randomness
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ParseRetryAfter parses a Retry-After header value in seconds.
// Returns 0 if the header is empty or malformed.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
