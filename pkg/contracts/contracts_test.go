package contracts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "NotAuthorized", Kind(ErrNotAuthorized))
	assert.Equal(t, "PoolExhausted", Kind(fmt.Errorf("finalize mint 3: %w", ErrPoolExhausted)))
	assert.Equal(t, "ReinitializationAttempt", Kind(ErrReinitialization))
	assert.Equal(t, "Internal", Kind(errors.New("boom")))

	// A failed forwarded call reports ExecutionFailed even when the
	// downstream cause is itself a taxonomy error.
	wrapped := fmt.Errorf("%w: %w", ErrExecutionFailed, ErrNotAuthorized)
	assert.Equal(t, "ExecutionFailed", Kind(wrapped))
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress(" 0xAbCDEF0123456789abcdef0123456789ABCDEF01 ")
	require.NoError(t, err)
	assert.Equal(t, Address("0xabcdef0123456789abcdef0123456789abcdef01"), a)

	a, err = ParseAddress("owner1")
	require.NoError(t, err)
	assert.Equal(t, Address("owner1"), a)

	_, err = ParseAddress("  ")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseAddress("0xzz23456789abcdef0123456789abcdef01234567")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Addresses([]string{"a", ""})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAmounts(t *testing.T) {
	assert.Equal(t, "1000000000000000000", Tokens(1).Dec())
	assert.Equal(t, "30000000000000000000", Tokens(30).Dec())

	v, err := ParseAmount("42")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v.Uint64())

	_, err = ParseAmount("-1")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.True(t, Clone(nil).IsZero())
	assert.Equal(t, "0", Dec(nil))
}

type recordingSink struct{ events []Event }

func (r *recordingSink) Emit(_ context.Context, ev Event) { r.events = append(r.events, ev) }

func TestSinksFanOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	Sinks{a, nil, b, NopSink{}}.Emit(context.Background(), Event{Type: EventMintRequested})
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}
