package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one delivered message. It must not fail: anything that
// goes wrong is the handler's to log.
type Handler func(ctx context.Context, msg Message)

// Subscriber polls a Redis stream through a consumer group and hands each
// entry to the handler in stream order, acknowledging it afterwards. When a
// run id is set, entries published by other runs are acknowledged without
// being handled.
type Subscriber struct {
	redisClient  *redis.Client
	streamKey    string
	group        string
	consumer     string
	runID        string
	handler      Handler
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
}

func NewSubscriber(redisClient *redis.Client, streamKey, group, consumer string, handler Handler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		redisClient:  redisClient,
		streamKey:    streamKey,
		group:        group,
		consumer:     consumer,
		handler:      handler,
		logger:       logger,
		pollInterval: 100 * time.Millisecond,
		batchSize:    10,
	}
}

// WithPolling overrides the poll interval and batch size.
func (s *Subscriber) WithPolling(interval time.Duration, batchSize int) *Subscriber {
	if interval > 0 {
		s.pollInterval = interval
	}
	if batchSize > 0 {
		s.batchSize = int64(batchSize)
	}
	return s
}

// WithRun restricts handling to entries tagged with runID.
func (s *Subscriber) WithRun(runID string) *Subscriber {
	s.runID = runID
	return s
}

// Setup creates the consumer group, and the stream with it, if needed. The
// group starts at the end of the stream so entries of earlier runs are skipped.
func (s *Subscriber) Setup(ctx context.Context) error {
	err := s.redisClient.XGroupCreateMkStream(ctx, s.streamKey, s.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group %s: %w", s.group, err)
	}
	return nil
}

// Teardown removes the consumer group. Callers use it for groups that belong
// to a single run.
func (s *Subscriber) Teardown(ctx context.Context) error {
	if err := s.redisClient.XGroupDestroy(ctx, s.streamKey, s.group).Err(); err != nil {
		return fmt.Errorf("removing consumer group %s: %w", s.group, err)
	}
	return nil
}

// Start begins the polling loop. It runs until the context is cancelled.
func (s *Subscriber) Start(ctx context.Context) {
	s.logger.Info("subscriber started", "stream", s.streamKey, "group", s.group, "consumer", s.consumer)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("subscriber stopping")
			return
		case <-ticker.C:
			// Drain everything available before waiting for the next tick
			for s.poll(ctx) > 0 {
			}
		}
	}
}

// poll reads one batch of new entries and processes them. It returns the
// number of entries handled.
func (s *Subscriber) poll(ctx context.Context) int {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.streamKey, ">"},
		Count:    s.batchSize,
		Block:    -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to read event stream", "error", err)
		}
		return 0
	}

	handled := 0
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			msg := toMessage(entry)
			if s.runID != "" && msg.RunID != s.runID {
				s.logger.Debug("skipping entry of another run", "entry_id", entry.ID, "run", msg.RunID)
			} else {
				s.handler(ctx, msg)
			}
			handled++

			if err := s.redisClient.XAck(ctx, s.streamKey, s.group, entry.ID).Err(); err != nil {
				s.logger.Error("failed to ack stream entry", "error", err, "entry_id", entry.ID)
			}
		}
	}
	return handled
}

func toMessage(entry redis.XMessage) Message {
	msg := Message{ID: entry.ID}
	if payload, ok := entry.Values[FieldPayload].(string); ok {
		msg.Payload = []byte(payload)
	}
	if last, ok := entry.Values[FieldIsLast].(string); ok {
		msg.IsLast = last == "1"
	}
	if run, ok := entry.Values[FieldRun].(string); ok {
		msg.RunID = run
	}
	return msg
}
