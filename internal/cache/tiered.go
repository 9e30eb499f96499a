package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Level is a tier together with its capacity in entries. A capacity of zero
// or less means unbounded.
type Level struct {
	Tier     Tier
	Capacity int64
}

// Tiered spills entries from small, fast tiers into larger, slower ones.
// New entries go to the first tier with spare capacity; lookups walk the
// tiers in order. Entry counts are tracked locally, so the store assumes it
// is the only writer of its tiers and that Put is only called for ids that
// are not already cached. A tier whose write failed may have applied it
// anyway; its count is reloaded with Len before the next write.
type Tiered struct {
	levels []Level
	logger *slog.Logger

	mu     sync.Mutex
	counts []int64
	stale  []bool
}

func NewTiered(logger *slog.Logger, levels ...Level) *Tiered {
	return &Tiered{
		levels: levels,
		logger: logger,
		counts: make([]int64, len(levels)),
		stale:  make([]bool, len(levels)),
	}
}

// Reset empties every tier so a run starts without stale entries.
func (t *Tiered) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, l := range t.levels {
		if err := l.Tier.Reset(ctx); err != nil {
			return fmt.Errorf("resetting %s tier: %w", l.Tier.Name(), err)
		}
		t.counts[i] = 0
		t.stale[i] = false
	}
	return nil
}

// recount reloads the counts of tiers marked stale. A tier that still cannot
// be counted stays stale and keeps its last known count.
func (t *Tiered) recount(ctx context.Context) {
	for i, l := range t.levels {
		if !t.stale[i] {
			continue
		}
		n, err := l.Tier.Len(ctx)
		if err != nil {
			continue
		}
		t.counts[i] = n
		t.stale[i] = false
	}
}

func (t *Tiered) Get(ctx context.Context, id string) (int64, bool, error) {
	for _, l := range t.levels {
		ts, ok, err := l.Tier.Get(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return ts, true, nil
		}
	}
	return 0, false, nil
}

func (t *Tiered) Put(ctx context.Context, id string, timestamp int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recount(ctx)

	for i, l := range t.levels {
		if l.Capacity > 0 && t.counts[i] >= l.Capacity {
			continue
		}
		if err := l.Tier.Put(ctx, id, timestamp); err != nil {
			t.stale[i] = true
			return err
		}
		t.counts[i]++
		if i > 0 && t.counts[i] == 1 {
			t.logger.Info("cache overflowing into next tier", "tier", l.Tier.Name())
		}
		return nil
	}

	return fmt.Errorf("%w: all tiers full", ErrAccess)
}

func (t *Tiered) Remove(ctx context.Context, id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recount(ctx)

	for i, l := range t.levels {
		removed, err := l.Tier.Remove(ctx, id)
		if err != nil {
			t.stale[i] = true
			return false, err
		}
		if removed {
			t.counts[i]--
			return true, nil
		}
	}
	return false, nil
}

// Len sums the entries held by every tier.
func (t *Tiered) Len(ctx context.Context) (int64, error) {
	var total int64
	for _, l := range t.levels {
		n, err := l.Tier.Len(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Counts returns the locally tracked entry count per tier, by tier name.
func (t *Tiered) Counts() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int64, len(t.levels))
	for i, l := range t.levels {
		out[l.Tier.Name()] = t.counts[i]
	}
	return out
}
