package engine

import (
	"context"
	"log/slog"

	"github.com/Priya8975/event-inserter/internal/cache"
	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/Priya8975/event-inserter/internal/parser"
	"github.com/Priya8975/event-inserter/internal/retry"
)

// AlertThreshold is compared against durations in the unit of the input
// timestamps (milliseconds in the observed data).
// TODO: confirm with the producers of the input files whether 4 is meant to be
// milliseconds; the value is kept as observed.
const AlertThreshold int64 = 4

// Correlator pairs the two occurrences of an id through the cache.
// It must be driven from a single goroutine.
type Correlator struct {
	cache  cache.Store
	policy *retry.Policy
	logger *slog.Logger
}

func NewCorrelator(store cache.Store, policy *retry.Policy, logger *slog.Logger) *Correlator {
	return &Correlator{
		cache:  store,
		policy: policy,
		logger: logger,
	}
}

// Correlate stores the first occurrence of an id and returns the completed
// Event on the second. A third occurrence starts a new pair. The returned
// error is fatal: it means the cache could not be reached within the retry
// budget.
func (c *Correlator) Correlate(ctx context.Context, item parser.Item) (*domain.Event, error) {
	var (
		previous int64
		found    bool
	)
	err := c.policy.Do("cache.get", func() error {
		var err error
		previous, found, err = c.cache.Get(ctx, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !found {
		err := c.policy.Do("cache.put", func() error {
			return c.cache.Put(ctx, item.ID, item.Timestamp)
		})
		if err != nil {
			return nil, err
		}
		c.logger.Debug("event item cached", "event_id", item.ID)
		return nil, nil
	}

	duration := item.Timestamp - previous
	if duration < 0 {
		duration = -duration
	}

	event := &domain.Event{
		ID:       item.ID,
		Host:     item.Host,
		Type:     item.Type,
		Duration: duration,
		Alert:    duration > AlertThreshold,
	}

	err = c.policy.Do("cache.remove", func() error {
		_, err := c.cache.Remove(ctx, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

// Forget drops a pending entry after a corrupted line and reports whether one
// was held. It makes a single attempt and only logs failures.
func (c *Correlator) Forget(ctx context.Context, id string) bool {
	removed, err := c.cache.Remove(ctx, id)
	if err != nil {
		c.logger.Warn("failed to drop pending entry for malformed item",
			"event_id", id,
			"error", err,
		)
		return false
	}
	if removed {
		c.logger.Debug("dropped pending entry for malformed item", "event_id", id)
	}
	return removed
}
