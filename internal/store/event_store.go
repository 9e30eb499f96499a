package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/event-inserter/internal/domain"
	"github.com/jackc/pgx/v5"
)

// SaveEvent upserts a correlated event. A redelivered message overwrites the
// row it already produced instead of adding a second one.
func (s *PostgresStore) SaveEvent(ctx context.Context, event domain.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, duration, type, host, alert)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET duration = EXCLUDED.duration,
			type = EXCLUDED.type,
			host = EXCLUDED.host,
			alert = EXCLUDED.alert
	`, event.ID, event.Duration, nullable(event.Type), nullable(event.Host), event.Alert)
	if err != nil {
		return fmt.Errorf("saving event %s: %w", event.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	var (
		event     domain.Event
		typ, host *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, duration, type, host, alert
		FROM events WHERE id = $1
	`, id).Scan(&event.ID, &event.Duration, &typ, &host, &event.Alert)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying event: %w", err)
	}
	event.Type = deref(typ)
	event.Host = deref(host)
	return &event, nil
}

// ListEvents returns events ordered by insertion time, newest first.
func (s *PostgresStore) ListEvents(ctx context.Context, alertOnly bool, limit int) ([]domain.Event, error) {
	query := `SELECT id, duration, type, host, alert FROM events`
	args := []interface{}{}
	argIdx := 1

	if alertOnly {
		query += " WHERE alert"
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e         domain.Event
			typ, host *string
		)
		if err := rows.Scan(&e.ID, &e.Duration, &typ, &host, &e.Alert); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = deref(typ)
		e.Host = deref(host)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	if events == nil {
		events = []domain.Event{}
	}

	return events, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
