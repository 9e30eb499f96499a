package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/Priya8975/event-inserter/internal/retry"
	"github.com/redis/go-redis/v9"
)

// Stream entry fields.
const (
	FieldPayload = "payload"
	FieldIsLast  = "is_last"
	FieldRun     = "run"
)

// Message is one delivered stream entry. RunID names the run that published
// it and is empty for untagged entries.
type Message struct {
	ID      string
	Payload []byte
	IsLast  bool
	RunID   string
}

// Publisher appends correlated events to a Redis stream.
type Publisher struct {
	redisClient *redis.Client
	streamKey   string
	policy      *retry.Policy
	throttle    *Throttle
	rateLimit   int
	runID       string
	logger      *slog.Logger
}

func NewPublisher(redisClient *redis.Client, streamKey string, policy *retry.Policy, logger *slog.Logger) *Publisher {
	return &Publisher{
		redisClient: redisClient,
		streamKey:   streamKey,
		policy:      policy,
		logger:      logger,
	}
}

// WithThrottle paces Send to at most limit messages per second.
func (p *Publisher) WithThrottle(t *Throttle, limit int) *Publisher {
	p.throttle = t
	p.rateLimit = limit
	return p
}

// WithRun tags every published entry with the run id.
func (p *Publisher) WithRun(runID string) *Publisher {
	p.runID = runID
	return p
}

// Send publishes the event with its isLast marker. Failures are retried by
// the policy; an error means the retry budget is spent and the run must stop.
func (p *Publisher) Send(ctx context.Context, event domain.Event, isLast bool) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.ID, err)
	}

	if p.throttle != nil {
		p.throttle.Wait(ctx, p.streamKey, p.rateLimit)
	}

	last := "0"
	if isLast {
		last = "1"
	}

	values := map[string]interface{}{
		FieldPayload: string(payload),
		FieldIsLast:  last,
	}
	if p.runID != "" {
		values[FieldRun] = p.runID
	}

	var entryID string
	err = p.policy.Do("stream.send", func() error {
		var err error
		entryID, err = p.redisClient.XAdd(ctx, &redis.XAddArgs{
			Stream: p.streamKey,
			Values: values,
		}).Result()
		return err
	})
	if err != nil {
		return fmt.Errorf("sending event %s: %w", event.ID, err)
	}

	p.logger.Info("event sent",
		"event_id", event.ID,
		"entry_id", entryID,
		"is_last", isLast,
	)
	return nil
}
