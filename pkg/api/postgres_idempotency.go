package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresIdempotencyStore keeps cached responses in PostgreSQL so replays
// survive restarts. It expects:
//
//	CREATE TABLE idempotency_keys (
//	    key         TEXT PRIMARY KEY,
//	    status_code INTEGER NOT NULL,
//	    headers     JSONB NOT NULL,
//	    body        BYTEA NOT NULL,
//	    cached_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresIdempotencyStore struct {
	db    *sql.DB
	ttl   time.Duration
	clock func() time.Time
}

func NewPostgresIdempotencyStore(db *sql.DB, ttl time.Duration) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db, ttl: ttl, clock: time.Now}
}

func (s *PostgresIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	var (
		resp     CachedResponse
		headers  []byte
		cachedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT status_code, headers, body, cached_at FROM idempotency_keys WHERE key = $1`,
		key,
	).Scan(&resp.Status, &headers, &resp.Body, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("idempotency get: %w", err)
	}
	if s.clock().Sub(cachedAt) >= s.ttl {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key); err != nil {
			return nil, false, fmt.Errorf("idempotency expire: %w", err)
		}
		return nil, false, nil
	}
	if err := json.Unmarshal(headers, &resp.Header); err != nil {
		return nil, false, fmt.Errorf("idempotency decode headers: %w", err)
	}
	return &resp, true, nil
}

// Put keeps the first response stored under key.
func (s *PostgresIdempotencyStore) Put(ctx context.Context, key string, resp CachedResponse) error {
	headers, err := json.Marshal(resp.Header)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO idempotency_keys (key, status_code, headers, body, cached_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO NOTHING`,
		key, resp.Status, headers, resp.Body, s.clock().UTC(),
	)
	if err != nil {
		return fmt.Errorf("idempotency put: %w", err)
	}
	return nil
}

// Cleanup removes keys older than the TTL.
func (s *PostgresIdempotencyStore) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE cached_at < $1`,
		s.clock().Add(-s.ttl).UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
