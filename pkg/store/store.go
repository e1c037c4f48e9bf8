// Package store persists node snapshots. Every backend keeps a revision
// counter and rejects a save based on a stale revision, so two processes
// sharing a backend cannot silently overwrite each other's state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by Load when nothing has been saved yet.
	ErrNotFound = errors.New("snapshot not found")
	// ErrConflict is returned by Save when the stored revision moved.
	ErrConflict = errors.New("snapshot revision conflict")
)

// Snapshot is one saved image of governance state.
type Snapshot struct {
	// Revision is the stored revision. Save takes the revision the caller
	// loaded (zero for the first save) and returns the new one.
	Revision   int64           `json:"revision"`
	Format     string          `json:"format"`
	State      json.RawMessage `json:"state"`
	LedgerHead string          `json:"ledger_head,omitempty"`
	SavedAt    time.Time       `json:"saved_at"`
}

// Store is a snapshot backend.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) (Snapshot, error)
	// History returns up to limit snapshots, newest first.
	History(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}

// MemoryStore keeps snapshots in process.
type MemoryStore struct {
	mu    sync.Mutex
	snaps []Snapshot
	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{clock: time.Now}
}

func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snaps) == 0 {
		return Snapshot{}, ErrNotFound
	}
	return m.snaps[len(m.snaps)-1], nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRevision(int64(len(m.snaps)), snap.Revision); err != nil {
		return Snapshot{}, err
	}
	snap.Revision = int64(len(m.snaps)) + 1
	snap.SavedAt = m.clock().UTC()
	snap.State = append(json.RawMessage(nil), snap.State...)
	m.snaps = append(m.snaps, snap)
	return snap, nil
}

func (m *MemoryStore) History(_ context.Context, limit int) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Snapshot
	for i := len(m.snaps) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.snaps[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

func checkRevision(current, based int64) error {
	if current != based {
		return fmt.Errorf("%w: stored revision is %d, save based on %d", ErrConflict, current, based)
	}
	return nil
}
