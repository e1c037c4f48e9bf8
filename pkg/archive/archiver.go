package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/mintgov/pkg/ledger"
)

// SegmentFormat versions the segment document.
const SegmentFormat = "mintgov.segment/v1"

// ErrNothingToSeal is returned by Seal when no entries arrived since the
// last segment.
var ErrNothingToSeal = errors.New("no new ledger entries to seal")

// Source is the ledger being archived.
type Source interface {
	Since(after uint64) []ledger.Entry
}

// Segment is a contiguous run of ledger entries. Segments link to their
// predecessor by digest, so the newest digest pins the whole archive.
type Segment struct {
	Format   string         `json:"format"`
	FirstSeq uint64         `json:"first_seq"`
	LastSeq  uint64         `json:"last_seq"`
	PrevHash string         `json:"prev_hash"`
	Head     string         `json:"head"`
	Prev     string         `json:"prev,omitempty"`
	SealedAt time.Time      `json:"sealed_at"`
	Entries  []ledger.Entry `json:"entries"`
}

// Cursor is the archiver's position: the last sealed sequence and segment.
type Cursor struct {
	LastSeq uint64 `json:"last_seq"`
	Head    string `json:"head"`
	Digest  string `json:"digest,omitempty"`
}

// Archiver seals new ledger entries into segments.
type Archiver struct {
	mu     sync.Mutex
	src    Source
	store  Store
	cursor Cursor
	clock  func() time.Time
	logger *slog.Logger
}

type Option func(*Archiver)

func WithClock(clock func() time.Time) Option {
	return func(a *Archiver) { a.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

func NewArchiver(src Source, store Store, opts ...Option) *Archiver {
	a := &Archiver{
		src:    src,
		store:  store,
		cursor: Cursor{Head: ledger.Genesis},
		clock:  time.Now,
		logger: slog.Default().With("component", "archive"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archiver) Cursor() Cursor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

// SetCursor resumes from a persisted position.
func (a *Archiver) SetCursor(c Cursor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c.Head == "" {
		c.Head = ledger.Genesis
	}
	a.cursor = c
}

// Seal writes every entry after the cursor as one segment and advances the
// cursor. The run is verified against the cursor's head before upload.
func (a *Archiver) Seal(ctx context.Context) (Segment, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := a.src.Since(a.cursor.LastSeq)
	if len(entries) == 0 {
		return Segment{}, "", ErrNothingToSeal
	}
	head, err := ledger.VerifyRange(a.cursor.Head, a.cursor.LastSeq+1, entries)
	if err != nil {
		return Segment{}, "", fmt.Errorf("seal segment: %w", err)
	}

	seg := Segment{
		Format:   SegmentFormat,
		FirstSeq: entries[0].Sequence,
		LastSeq:  entries[len(entries)-1].Sequence,
		PrevHash: a.cursor.Head,
		Head:     head,
		Prev:     a.cursor.Digest,
		SealedAt: a.clock().UTC(),
		Entries:  entries,
	}
	data, err := encode(seg)
	if err != nil {
		return Segment{}, "", err
	}
	digest, err := a.store.Put(ctx, data)
	if err != nil {
		return Segment{}, "", fmt.Errorf("upload segment: %w", err)
	}

	a.cursor = Cursor{LastSeq: seg.LastSeq, Head: head, Digest: digest}
	a.logger.InfoContext(ctx, "ledger segment sealed",
		"first_seq", seg.FirstSeq, "last_seq", seg.LastSeq, "digest", digest)
	return seg, digest, nil
}

func encode(seg Segment) ([]byte, error) {
	raw, err := json.Marshal(seg)
	if err != nil {
		return nil, fmt.Errorf("encode segment: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize segment: %w", err)
	}
	return canon, nil
}

// Fetch downloads a segment and checks its digest and entry chain.
func Fetch(ctx context.Context, store Store, digest string) (Segment, error) {
	data, err := store.Get(ctx, digest)
	if err != nil {
		return Segment{}, err
	}
	if got := Digest(data); got != digest {
		return Segment{}, fmt.Errorf("%w: segment digest %s, want %s", ledger.ErrChainBroken, got, digest)
	}
	var seg Segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return Segment{}, fmt.Errorf("decode segment: %w", err)
	}
	if seg.Format != SegmentFormat {
		return Segment{}, fmt.Errorf("unsupported segment format %q", seg.Format)
	}
	head, err := ledger.VerifyRange(seg.PrevHash, seg.FirstSeq, seg.Entries)
	if err != nil {
		return Segment{}, err
	}
	if head != seg.Head {
		return Segment{}, fmt.Errorf("%w: segment head %s, entries end at %s", ledger.ErrChainBroken, seg.Head, head)
	}
	return seg, nil
}

// Walk visits segments from digest back to the first one. Each segment must
// end where its successor begins.
func Walk(ctx context.Context, store Store, digest string, fn func(Segment) error) error {
	var next *Segment
	for digest != "" {
		seg, err := Fetch(ctx, store, digest)
		if err != nil {
			return err
		}
		if next != nil && (seg.Head != next.PrevHash || seg.LastSeq+1 != next.FirstSeq) {
			return fmt.Errorf("%w: segment %s does not precede its successor", ledger.ErrChainBroken, digest)
		}
		if err := fn(seg); err != nil {
			return err
		}
		next = &seg
		digest = seg.Prev
	}
	if next != nil && next.PrevHash != ledger.Genesis {
		return fmt.Errorf("%w: archive does not reach genesis", ledger.ErrChainBroken)
	}
	return nil
}
