// Package ledger keeps the governance record: an append-only, hash-chained
// log of every committed engine, pipeline and controller transition.
//
// Entry hashes cover the RFC 8785 canonical form of the entry body, so a
// chain exported from one node verifies byte-for-byte on another.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Genesis is the head of an empty ledger.
const Genesis = "genesis"

var (
	ErrNotFound    = errors.New("ledger: entry not found")
	ErrChainBroken = errors.New("ledger: chain broken")
)

// Entry is an immutable, hash-chained record of one event.
type Entry struct {
	Sequence    uint64            `json:"sequence"`
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Actor       contracts.Address `json:"actor"`
	Subject     string            `json:"subject,omitempty"`
	Data        map[string]any    `json:"data,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	PrevHash    string            `json:"prev_hash"`
	ContentHash string            `json:"content_hash"`
}

// Ledger is an append-only governance log. It is safe for concurrent use
// and implements contracts.EventSink.
type Ledger struct {
	mu       sync.RWMutex
	entries  []Entry
	headHash string
	clock    func() time.Time
	logger   *slog.Logger
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:  make([]Entry, 0),
		headHash: Genesis,
		clock:    time.Now,
		logger:   slog.Default().With("component", "ledger"),
	}
}

// WithClock overrides clock for testing.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// WithLogger sets the logger used to report rejected events.
func (l *Ledger) WithLogger(logger *slog.Logger) *Ledger {
	l.logger = logger
	return l
}

// Emit records ev. Events that cannot be hashed are logged and dropped.
func (l *Ledger) Emit(ctx context.Context, ev contracts.Event) {
	if _, err := l.Append(ev); err != nil {
		l.logger.ErrorContext(ctx, "event not recorded", "type", ev.Type, "error", err)
	}
}

// Append chains ev onto the head and returns the new entry.
func (l *Ledger) Append(ev contracts.Event) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := ev.At
	if at.IsZero() {
		at = l.clock()
	}
	e := Entry{
		Sequence:  uint64(len(l.entries)) + 1,
		ID:        uuid.New().String(),
		Type:      ev.Type,
		Actor:     ev.Actor,
		Subject:   ev.Subject,
		Timestamp: at.UTC(),
		PrevHash:  l.headHash,
	}
	// Data is stored as it round-trips through JSON so that an exported
	// chain hashes to the same values.
	data, err := normalise(ev.Data)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: encode %s data: %w", ev.Type, err)
	}
	e.Data = data
	h, err := contentHash(e)
	if err != nil {
		return Entry{}, err
	}
	e.ContentHash = h

	l.entries = append(l.entries, e)
	l.headHash = h
	return e, nil
}

// Get retrieves an entry by sequence number.
func (l *Ledger) Get(seq uint64) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq == 0 || seq > uint64(len(l.entries)) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, seq)
	}
	return l.entries[seq-1], nil
}

// Since returns the entries after sequence number after.
func (l *Ledger) Since(after uint64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if after >= uint64(len(l.entries)) {
		return nil
	}
	out := make([]Entry, len(l.entries)-int(after))
	copy(out, l.entries[after:])
	return out
}

// Head returns the current head hash.
func (l *Ledger) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Length returns the number of entries.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Verify checks the integrity of the whole chain.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, err := verify(l.entries)
	return err
}

// Restore replaces the ledger contents with entries after verifying them.
func (l *Ledger) Restore(entries []Entry) error {
	head, err := verify(entries)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(make([]Entry, 0, len(entries)), entries...)
	l.headHash = head
	return nil
}

func verify(entries []Entry) (string, error) {
	return VerifyRange(Genesis, 1, entries)
}

// VerifyRange checks a contiguous run of entries that starts at sequence
// first and follows the entry hashed prev. It returns the hash of the last
// entry, or prev for an empty run.
func VerifyRange(prev string, first uint64, entries []Entry) (string, error) {
	for i, e := range entries {
		if want := first + uint64(i); e.Sequence != want {
			return "", fmt.Errorf("%w: entry %d has sequence %d", ErrChainBroken, want, e.Sequence)
		}
		if e.PrevHash != prev {
			return "", fmt.Errorf("%w: entry %d expected prev %s, got %s", ErrChainBroken, e.Sequence, prev, e.PrevHash)
		}
		h, err := contentHash(e)
		if err != nil {
			return "", err
		}
		if h != e.ContentHash {
			return "", fmt.Errorf("%w: hash mismatch at entry %d", ErrChainBroken, e.Sequence)
		}
		prev = h
	}
	return prev, nil
}

func contentHash(e Entry) (string, error) {
	body := struct {
		Seq     uint64            `json:"seq"`
		ID      string            `json:"id"`
		Type    string            `json:"type"`
		Actor   contracts.Address `json:"actor"`
		Subject string            `json:"subject"`
		Data    map[string]any    `json:"data"`
		At      time.Time         `json:"at"`
		Prev    string            `json:"prev"`
	}{e.Sequence, e.ID, e.Type, e.Actor, e.Subject, e.Data, e.Timestamp, e.PrevHash}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ledger: marshal entry %d: %w", e.Sequence, err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("ledger: canonicalize entry %d: %w", e.Sequence, err)
	}
	h := sha256.Sum256(canon)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}

func normalise(data map[string]any) (map[string]any, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
