// Package completion provides the one-shot handoff between the producer,
// which waits once the input is exhausted, and the consumer, which releases
// it after handling the terminal message.
//
// Wait has no timeout. If the terminal message is never observed, for example
// because the run produced no events, Wait blocks until the process is
// killed. WaitTimeout exists for callers that prefer an error, and
// WaitContext also gives up when its context is cancelled.
package completion

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by WaitTimeout when the signal was not released in time.
var ErrTimeout = errors.New("timed out waiting for completion")

type Signal struct {
	once sync.Once
	done chan struct{}
}

func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Release wakes the waiter. Calls after the first are no-ops.
func (s *Signal) Release() {
	s.once.Do(func() { close(s.done) })
}

// Wait blocks until Release is called.
func (s *Signal) Wait() {
	<-s.done
}

// WaitTimeout blocks until Release is called or d elapses. A non-positive d
// waits forever.
func (s *Signal) WaitTimeout(d time.Duration) error {
	if d <= 0 {
		s.Wait()
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-s.done:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

// WaitContext blocks until Release is called, d elapses or ctx is done. A
// non-positive d means no timeout. It returns ctx.Err() on cancellation.
func (s *Signal) WaitContext(ctx context.Context, d time.Duration) error {
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-s.done:
		return nil
	case <-timeout:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Released reports whether Release has been called.
func (s *Signal) Released() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
