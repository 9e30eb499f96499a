package store

import (
	"context"
	"fmt"

	"github.com/Priya8975/event-inserter/internal/domain"
)

// GetEventStats returns aggregated statistics over the persisted events.
func (s *PostgresStore) GetEventStats(ctx context.Context) (*domain.EventStats, error) {
	var m domain.EventStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE alert) AS alerts,
			COALESCE(AVG(duration), 0) AS avg_duration,
			COALESCE(MAX(duration), 0) AS max_duration
		FROM events
	`).Scan(&m.TotalEvents, &m.AlertCount, &m.AvgDurationMs, &m.MaxDurationMs)
	if err != nil {
		return nil, fmt.Errorf("querying event stats: %w", err)
	}

	return &m, nil
}
