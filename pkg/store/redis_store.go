package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the latest snapshot under one key and a bounded history
// list beside it. Saves run in a WATCH transaction on the latest key.
type RedisStore struct {
	client  redis.UniversalClient
	key     string
	history int64
	clock   func() time.Time
}

// NewRedisStore stores snapshots under prefix+"snapshot" and keeps the
// newest keep entries in prefix+"snapshot:history".
func NewRedisStore(client redis.UniversalClient, prefix string, keep int) *RedisStore {
	if keep <= 0 {
		keep = 16
	}
	return &RedisStore{client: client, key: prefix + "snapshot", history: int64(keep), clock: time.Now}
}

func (s *RedisStore) historyKey() string { return s.key + ":history" }

func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	return s.get(ctx, s.client)
}

func (s *RedisStore) get(ctx context.Context, c redis.Cmdable) (Snapshot, error) {
	raw, err := c.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) (Snapshot, error) {
	var saved Snapshot
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var current int64
		cur, err := s.get(ctx, tx)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			current = cur.Revision
		}
		if err := checkRevision(current, snap.Revision); err != nil {
			return err
		}

		next := snap
		next.Revision = current + 1
		next.SavedAt = s.clock().UTC()
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key, raw, 0)
			p.LPush(ctx, s.historyKey(), raw)
			p.LTrim(ctx, s.historyKey(), 0, s.history-1)
			return nil
		})
		if err != nil {
			return err
		}
		saved = next
		return nil
	}, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		return Snapshot{}, fmt.Errorf("%w: snapshot key changed during save", ErrConflict)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return saved, nil
}

func (s *RedisStore) History(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}
	raws, err := s.client.LRange(ctx, s.historyKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(raws))
	for _, raw := range raws {
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot history: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
