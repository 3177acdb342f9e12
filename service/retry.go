package service

import (
	"context"
	"errors"
	"strings"
	"time"
)

// retryableSignatures are lower-case fragments of provider error messages
// that indicate a transient condition.
var retryableSignatures = []string{
	"503",
	"overloaded",
	"429",
	"rate limit",
	"too many requests",
	"timeout",
	"timed out",
	"deadline exceeded",
	"unavailable",
}

// IsRetryableError reports whether err is a transient provider failure that
// justifies moving on to the next model.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModelTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range retryableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// BackoffDelay returns base * 2^attempt capped at max.
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
