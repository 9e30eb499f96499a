package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/event-inserter/internal/cache"
	"github.com/jackc/pgx/v5"
)

// PendingTier is the disk-backed tier of the correlation cache.
type PendingTier struct {
	store *PostgresStore
}

func (s *PostgresStore) PendingTier() *PendingTier {
	return &PendingTier{store: s}
}

func (p *PendingTier) Name() string { return "postgres" }

func (p *PendingTier) Get(ctx context.Context, id string) (int64, bool, error) {
	var ts int64
	err := p.store.pool.QueryRow(ctx,
		"SELECT ts FROM pending_timestamps WHERE id = $1", id,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: selecting pending %s: %w", cache.ErrAccess, id, err)
	}
	return ts, true, nil
}

func (p *PendingTier) Put(ctx context.Context, id string, timestamp int64) error {
	_, err := p.store.pool.Exec(ctx, `
		INSERT INTO pending_timestamps (id, ts) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET ts = EXCLUDED.ts
	`, id, timestamp)
	if err != nil {
		return fmt.Errorf("%w: inserting pending %s: %w", cache.ErrAccess, id, err)
	}
	return nil
}

func (p *PendingTier) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := p.store.pool.Exec(ctx, "DELETE FROM pending_timestamps WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("%w: deleting pending %s: %w", cache.ErrAccess, id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PendingTier) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := p.store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM pending_timestamps").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting pending: %w", cache.ErrAccess, err)
	}
	return n, nil
}

func (p *PendingTier) Reset(ctx context.Context) error {
	if _, err := p.store.pool.Exec(ctx, "TRUNCATE pending_timestamps"); err != nil {
		return fmt.Errorf("%w: truncating pending: %w", cache.ErrAccess, err)
	}
	return nil
}
