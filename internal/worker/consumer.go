package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Priya8975/event-inserter/internal/completion"
	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/Priya8975/event-inserter/internal/metrics"
	"github.com/Priya8975/event-inserter/internal/transport"
)

// Sink persists correlated events.
type Sink interface {
	SaveEvent(ctx context.Context, event domain.Event) error
}

// Consumer persists delivered events and releases the completion signal when
// it sees the terminal message.
type Consumer struct {
	sink    Sink
	done    *completion.Signal
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewConsumer(sink Sink, done *completion.Signal, m *metrics.Metrics, logger *slog.Logger) *Consumer {
	return &Consumer{
		sink:    sink,
		done:    done,
		metrics: m,
		logger:  logger,
	}
}

// Handle saves the event carried by msg. Decode and save failures are logged
// and dropped; the terminal message releases the signal either way.
func (c *Consumer) Handle(ctx context.Context, msg transport.Message) {
	if msg.IsLast {
		defer func() {
			c.done.Release()
			c.logger.Info("terminal message handled", "entry_id", msg.ID)
		}()
	}

	var event domain.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.metrics.SaveFailures.Inc()
		c.logger.Error("failed to decode event message",
			"error", err,
			"entry_id", msg.ID,
		)
		return
	}

	c.logger.Debug("received event message", "event_id", event.ID)

	if err := c.sink.SaveEvent(ctx, event); err != nil {
		c.metrics.SaveFailures.Inc()
		c.logger.Error("failed to save event",
			"error", err,
			"event_id", event.ID,
		)
		return
	}

	c.metrics.EventsSaved.Inc()
	c.logger.Info("event saved", "event_id", event.ID, "alert", event.Alert)
}
