package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

func fixedClock() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

func event(typ string, data map[string]any) contracts.Event {
	return contracts.Event{Type: typ, Actor: "owner-1", Subject: "multisig", Data: data}
}

func TestLedgerAppend(t *testing.T) {
	l := New().WithClock(fixedClock)
	e, err := l.Append(event(contracts.EventActionProposed, map[string]any{"kind": "pauseMints"}))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), e.Sequence)
	assert.Equal(t, Genesis, e.PrevHash)
	assert.Equal(t, fixedClock(), e.Timestamp)
	assert.Len(t, e.ID, 36)
	assert.Equal(t, 1, l.Length())
	assert.Equal(t, e.ContentHash, l.Head())
}

func TestLedgerChainIntegrity(t *testing.T) {
	l := New()
	ctx := context.Background()
	l.Emit(ctx, event(contracts.EventActionProposed, map[string]any{"approvals": 1}))
	l.Emit(ctx, event(contracts.EventActionExecuted, map[string]any{"approvals": 2}))
	l.Emit(ctx, event(contracts.EventMintFinalized, map[string]any{"amount": "1000"}))

	require.NoError(t, l.Verify())
	e1, err := l.Get(1)
	require.NoError(t, err)
	e2, err := l.Get(2)
	require.NoError(t, err)
	assert.Equal(t, e1.ContentHash, e2.PrevHash)
}

func TestLedgerGetNotFound(t *testing.T) {
	l := New()
	_, err := l.Get(0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = l.Get(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerSince(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		_, err := l.Append(event(contracts.EventMintRequested, map[string]any{"index": i}))
		require.NoError(t, err)
	}
	tail := l.Since(1)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(2), tail[0].Sequence)
	assert.Nil(t, l.Since(3))
}

func TestLedgerRestoreFromExport(t *testing.T) {
	l := New().WithClock(fixedClock)
	_, err := l.Append(event(contracts.EventMintRequested, map[string]any{"index": uint64(7), "amount": "30000"}))
	require.NoError(t, err)
	_, err = l.Append(event(contracts.EventMintFinalized, nil))
	require.NoError(t, err)

	raw, err := json.Marshal(l.Since(0))
	require.NoError(t, err)
	var entries []Entry
	require.NoError(t, json.Unmarshal(raw, &entries))

	restored := New()
	require.NoError(t, restored.Restore(entries))
	assert.Equal(t, l.Head(), restored.Head())
	assert.Equal(t, 2, restored.Length())
}

func TestLedgerDetectsTampering(t *testing.T) {
	l := New()
	_, err := l.Append(event(contracts.EventMintRequested, map[string]any{"amount": "10"}))
	require.NoError(t, err)
	_, err = l.Append(event(contracts.EventMintFinalized, map[string]any{"amount": "10"}))
	require.NoError(t, err)

	entries := l.Since(0)
	entries[0].Data = map[string]any{"amount": "10000"}
	assert.ErrorIs(t, New().Restore(entries), ErrChainBroken)

	entries = l.Since(0)
	entries[1].PrevHash = Genesis
	assert.ErrorIs(t, New().Restore(entries), ErrChainBroken)

	entries = l.Since(0)
	assert.ErrorIs(t, New().Restore(entries[1:]), ErrChainBroken)
}

func TestLedgerDropsUnencodableEvent(t *testing.T) {
	l := New()
	l.Emit(context.Background(), event("bad", map[string]any{"ch": make(chan int)}))
	assert.Equal(t, 0, l.Length())
	assert.Equal(t, Genesis, l.Head())
}
