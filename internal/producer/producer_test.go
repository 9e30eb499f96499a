package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Priya8975/event-inserter/internal/cache"
	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/Priya8975/event-inserter/internal/engine"
	"github.com/Priya8975/event-inserter/internal/metrics"
	"github.com/Priya8975/event-inserter/internal/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type sentEvent struct {
	event  domain.Event
	isLast bool
}

// fakeSender records sends and can fail after a number of successes.
type fakeSender struct {
	sent    []sentEvent
	failAt  int
	failErr error
}

func (f *fakeSender) Send(_ context.Context, event domain.Event, isLast bool) error {
	if f.failErr != nil && len(f.sent) == f.failAt {
		return f.failErr
	}
	f.sent = append(f.sent, sentEvent{event: event, isLast: isLast})
	return nil
}

func setupProducer(t *testing.T, store cache.Store) (*Producer, *fakeSender) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	correlator := engine.NewCorrelator(store, retry.NewPolicy(10, 0, logger), logger)
	sender := &fakeSender{}
	return New(correlator, sender, metrics.New(prometheus.NewRegistry()), logger), sender
}

func writeFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.tmp")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateFile(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty.tmp")
	os.WriteFile(empty, nil, 0o600)
	valid := writeFile(t, `{"id":"a","timestamp":1}`)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no file provided", args: nil, wantErr: ErrNoPath},
		{name: "file does not exist", args: []string{"no_such_file.txt"}, wantErr: ErrNotExist},
		{name: "empty file", args: []string{empty}, wantErr: ErrEmptyFile},
		{name: "valid file", args: []string{valid}, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := ValidateFile(tt.args)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateFile error = %v", err)
				}
				if path != valid {
					t.Errorf("path = %q, want %q", path, valid)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_InterleavedPairs(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	p, sender := setupProducer(t, store)

	path := writeFile(t,
		`{"id":"scsmbstgra", "state":"STARTED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495212}`,
		`{"id":"scsmbstgrb", "state":"STARTED", "timestamp":1491377495213}`,
		`{"id":"scsmbstgrc", "state":"FINISHED", "timestamp":1491377495218}`,
		`{"id":"scsmbstgra", "state":"FINISHED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495217}`,
		`{"id":"scsmbstgrc", "state":"STARTED", "timestamp":1491377495210}`,
		`{"id":"scsmbstgrb", "state":"FINISHED", "timestamp":1491377495216}`,
	)

	n, err := p.Run(ctx, path)
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if n != 3 || len(sender.sent) != 3 {
		t.Fatalf("sent %d (%d recorded), want 3", n, len(sender.sent))
	}

	wantIDs := []string{"scsmbstgra", "scsmbstgrc", "scsmbstgrb"}
	wantDur := []int64{5, 8, 3}
	for i, s := range sender.sent {
		if s.event.ID != wantIDs[i] || s.event.Duration != wantDur[i] {
			t.Errorf("event %d = %s/%d, want %s/%d", i, s.event.ID, s.event.Duration, wantIDs[i], wantDur[i])
		}
		if s.isLast != (i == 2) {
			t.Errorf("event %d isLast = %v", i, s.isLast)
		}
	}

	if left, _ := store.Len(ctx); left != 0 {
		t.Errorf("cache entries = %d, want 0", left)
	}
}

func TestRun_LastLineUnpairedStillMarksLastEvent(t *testing.T) {
	store := cache.NewMemory()
	p, sender := setupProducer(t, store)

	path := writeFile(t,
		`{"id":"a","timestamp":1}`,
		`{"id":"a","timestamp":2}`,
		`{"id":"orphan","timestamp":3}`,
		`{"state":"STARTED","timestamp":4}`,
	)

	if _, err := p.Run(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 || !sender.sent[0].isLast {
		t.Errorf("sent = %+v, want one terminal event", sender.sent)
	}

	// The orphan stays pending for the rest of the run
	if _, ok, _ := store.Get(context.Background(), "orphan"); !ok {
		t.Error("orphan should remain cached")
	}
}

func TestRun_InvalidLineLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	p, sender := setupProducer(t, store)

	path := writeFile(t,
		`{"state":"STARTED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495212}`,
	)

	if _, err := p.Run(ctx, path); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d events, want 0", len(sender.sent))
	}
	if n, _ := store.Len(ctx); n != 0 {
		t.Errorf("cache entries = %d, want 0", n)
	}
}

func TestRun_MalformedLineDropsPendingEntry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	store.Put(ctx, "scsmbstgra", 1)
	p, sender := setupProducer(t, store)

	path := writeFile(t,
		`{"id":"scsmbstgra", "state":"STARTED", "type":"APPLICATION_LOG","host":"12345", `,
		`:"STARTED", "type":"APPLICATION_LOG","host":"12345", "timestamp":1491377495212}`,
	)

	if _, err := p.Run(ctx, path); err != nil {
		t.Fatalf("malformed lines must not abort the run, got %v", err)
	}
	if _, ok, _ := store.Get(ctx, "scsmbstgra"); ok {
		t.Error("pending entry for the malformed id should be removed")
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d events, want 0", len(sender.sent))
	}
}

func TestRun_PendingGaugeTracksDroppedEntries(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	m := metrics.New(prometheus.NewRegistry())
	correlator := engine.NewCorrelator(cache.NewMemory(), retry.NewPolicy(10, 0, logger), logger)
	p := New(correlator, &fakeSender{}, m, logger)

	path := writeFile(t,
		`{"id":"a","timestamp":1}`,
		`{"id":"b","timestamp":2}`,
		`{"id":"a", "state":"FINISHED", `,
		`{"id":"zzz", "state":"FINISHED", `,
	)

	if _, err := p.Run(ctx, path); err != nil {
		t.Fatal(err)
	}
	// a was dropped by its malformed line, zzz was never pending
	if got := testutil.ToFloat64(m.PendingEntries); got != 1 {
		t.Errorf("pending gauge = %v, want 1", got)
	}
}

func TestRun_NoEventsSendsNothing(t *testing.T) {
	p, sender := setupProducer(t, cache.NewMemory())

	path := writeFile(t, `{"id":"a","timestamp":1}`, `{"id":"b","timestamp":2}`)

	n, err := p.Run(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(sender.sent) != 0 {
		t.Errorf("sent %d, want 0 and no terminal message", n)
	}
}

func TestRun_DeliveryFailureIsFatal(t *testing.T) {
	p, sender := setupProducer(t, cache.NewMemory())
	sender.failErr = fmt.Errorf("sending: %w", retry.ErrExhausted)
	sender.failAt = 1

	path := writeFile(t,
		`{"id":"a","timestamp":1}`,
		`{"id":"a","timestamp":2}`,
		`{"id":"b","timestamp":1}`,
		`{"id":"b","timestamp":2}`,
		`{"id":"c","timestamp":1}`,
		`{"id":"c","timestamp":2}`,
	)

	n, err := p.Run(context.Background(), path)
	if !errors.Is(err, retry.ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
	if n != 1 {
		t.Errorf("sent before failure = %d, want 1", n)
	}
}

func TestRun_CacheFailureIsFatal(t *testing.T) {
	p, _ := setupProducer(t, brokenStore{})

	path := writeFile(t, `{"id":"a","timestamp":1}`)

	_, err := p.Run(context.Background(), path)
	if !errors.Is(err, cache.ErrAccess) || !errors.Is(err, retry.ErrExhausted) {
		t.Errorf("want exhausted cache access error, got %v", err)
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (int64, bool, error) {
	return 0, false, cache.ErrAccess
}
func (brokenStore) Put(context.Context, string, int64) error { return cache.ErrAccess }
func (brokenStore) Remove(context.Context, string) (bool, error) {
	return false, cache.ErrAccess
}
func (brokenStore) Len(context.Context) (int64, error) { return 0, cache.ErrAccess }
