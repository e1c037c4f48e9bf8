package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/ledger"
)

var (
	// ErrInvalidTimeRange is returned when start time is after end time.
	ErrInvalidTimeRange = errors.New("audit: start_time must be before end_time")
	// ErrStoreNotConfigured is returned when export is invoked without a ledger.
	ErrStoreNotConfigured = errors.New("audit: ledger not configured (fail-closed)")
	// ErrChainInvalid is returned when the ledger fails verification.
	ErrChainInvalid = errors.New("audit: ledger chain failed verification")
)

// Source is the ledger surface an export reads.
type Source interface {
	Since(after uint64) []ledger.Entry
	Head() string
	Verify() error
}

// ExportRequest selects the entries of an evidence pack. Zero times leave
// the range open and an empty Types list selects every type.
type ExportRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Types     []string  `json:"types,omitempty"`
}

// Manifest describes an evidence pack.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	EntryCount  int       `json:"entry_count"`
	ChainHead   string    `json:"chain_head"`
	ChainLength int       `json:"chain_length"`
	FirstSeq    uint64    `json:"first_sequence,omitempty"`
	LastSeq     uint64    `json:"last_sequence,omitempty"`
	Start       time.Time `json:"start,omitempty"`
	End         time.Time `json:"end,omitempty"`
	Types       []string  `json:"types,omitempty"`
	EntriesHash string    `json:"entries_sha256"`
}

// Exporter builds evidence packs from the ledger.
type Exporter struct {
	source Source
	clock  func() time.Time
}

func NewExporter(s Source) *Exporter {
	return &Exporter{source: s, clock: time.Now}
}

// GeneratePack verifies the chain and returns a zip holding the selected
// entries and a manifest, along with the zip's sha256.
func (e *Exporter) GeneratePack(ctx context.Context, req ExportRequest) ([]byte, string, error) {
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.StartTime.After(req.EndTime) {
		return nil, "", ErrInvalidTimeRange
	}
	if e.source == nil {
		return nil, "", ErrStoreNotConfigured
	}
	if err := e.source.Verify(); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrChainInvalid, err)
	}

	all := e.source.Since(0)
	entries := make([]ledger.Entry, 0, len(all))
	for _, en := range all {
		if !req.StartTime.IsZero() && en.Timestamp.Before(req.StartTime) {
			continue
		}
		if !req.EndTime.IsZero() && en.Timestamp.After(req.EndTime) {
			continue
		}
		if len(req.Types) > 0 && !slices.Contains(req.Types, en.Type) {
			continue
		}
		entries = append(entries, en)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	entriesJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(entriesJSON)

	m := Manifest{
		GeneratedAt: e.clock().UTC(),
		EntryCount:  len(entries),
		ChainHead:   e.source.Head(),
		ChainLength: len(all),
		Start:       req.StartTime,
		End:         req.EndTime,
		Types:       req.Types,
		EntriesHash: hex.EncodeToString(sum[:]),
	}
	if len(entries) > 0 {
		m.FirstSeq, m.LastSeq = entries[0].Sequence, entries[len(entries)-1].Sequence
	}
	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: failed to marshal manifest: %w", err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	files := []struct {
		name string
		body []byte
	}{
		{"entries.json", entriesJSON},
		{"manifest.json", manifestJSON},
		{"README.txt", []byte(fmt.Sprintf(
			"Governance evidence pack\nGenerated at %s\nChain head %s\nVerify entries.json against entries_sha256 in manifest.json.\n",
			m.GeneratedAt.Format(time.RFC3339), m.ChainHead))},
	}
	for _, f := range files {
		fw, err := w.Create(f.name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(f.body); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	zipBytes := buf.Bytes()
	hash := sha256.Sum256(zipBytes)
	return zipBytes, hex.EncodeToString(hash[:]), nil
}
