package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrExhausted is returned when an operation still fails after every retry.
var ErrExhausted = errors.New("retries exhausted")

// Policy retries a failing operation a bounded number of times with a fixed
// delay between attempts. Errors caused by a cancelled or expired context are
// returned at once; sleeps themselves are not interrupted.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Logger     *slog.Logger

	// OnRetry is called before each retry with the operation name.
	OnRetry func(op string)

	sleep func(time.Duration)
}

// NewPolicy creates a policy with the given retry budget and delay.
func NewPolicy(maxRetries int, delay time.Duration, logger *slog.Logger) *Policy {
	return &Policy{
		MaxRetries: maxRetries,
		Delay:      delay,
		Logger:     logger,
		sleep:      time.Sleep,
	}
}

// Do runs fn, retrying up to MaxRetries times after the first failure.
// On exhaustion it returns an error wrapping both ErrExhausted and the last error.
func (p *Policy) Do(op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		if stopped(err) {
			return fmt.Errorf("%s: %w", op, err)
		}

		if p.Logger != nil {
			p.Logger.Error("operation failed, retrying",
				"operation", op,
				"attempt", attempt,
				"max_retries", p.MaxRetries,
				"error", err,
			)
		}
		if p.OnRetry != nil {
			p.OnRetry(op)
		}

		p.pause()

		if err = fn(); err == nil {
			return nil
		}
	}
	if stopped(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w after %d retries: %w", op, ErrExhausted, p.MaxRetries, err)
}

func (p *Policy) pause() {
	if p.Delay <= 0 {
		return
	}
	if p.sleep != nil {
		p.sleep(p.Delay)
		return
	}
	time.Sleep(p.Delay)
}

func stopped(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
