// Package datagen writes input files for load and end-to-end testing: every
// id appears exactly twice, once STARTED and once FINISHED, in shuffled order.
package datagen

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/Priya8975/event-inserter/internal/domain"
)

// Options control the generated file.
type Options struct {
	Pairs     int
	Host      string
	Type      string
	StartTime int64 // milliseconds; each line is stamped one millisecond after the previous
	Seed      uint64
}

// Generate writes 2*opts.Pairs newline-delimited items to w.
func Generate(w io.Writer, opts Options) error {
	if opts.Pairs < 0 {
		return fmt.Errorf("pairs must be >= 0, got %d", opts.Pairs)
	}

	ids := make([]int, 0, opts.Pairs*2)
	for i := 0; i < opts.Pairs; i++ {
		ids = append(ids, i, i)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	// startedFirst records, per open id, whether its first line was STARTED
	startedFirst := make(map[int]bool)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for i, n := range ids {
		id := strconv.Itoa(n)
		ts := opts.StartTime + int64(i)

		var state string
		if first, open := startedFirst[n]; open {
			state = stateName(!first)
			delete(startedFirst, n)
		} else {
			first := rng.IntN(2) == 0
			startedFirst[n] = first
			state = stateName(first)
		}

		item := domain.EventItem{
			ID:        &id,
			State:     state,
			Timestamp: &ts,
			Type:      opts.Type,
			Host:      opts.Host,
		}
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("writing item %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func stateName(started bool) string {
	if started {
		return "STARTED"
	}
	return "FINISHED"
}
