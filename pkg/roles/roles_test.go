package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

type staticOwner contracts.Address

func (o staticOwner) Owner() contracts.Address { return contracts.Address(o) }

type attrSet map[contracts.Address]map[string]bool

func (s attrSet) HasAttribute(who contracts.Address, attr string) bool { return s[who][attr] }

type events []contracts.Event

func (e *events) Emit(_ context.Context, ev contracts.Event) { *e = append(*e, ev) }

func TestRoleChecks(t *testing.T) {
	attrs := attrSet{
		"rat":   {contracts.AttrMintRatifier: true},
		"check": {contracts.AttrMintChecker: true},
	}
	r := New(staticOwner("multisig"), attrs)
	r.Restore(State{MintKey: "minter", PauseKey: "pauser"})

	assert.True(t, r.IsOwner("multisig"))
	assert.False(t, r.IsOwner("minter"))
	assert.False(t, r.IsOwner(contracts.ZeroAddress))

	assert.True(t, r.IsMintKey("minter"))
	assert.False(t, r.IsMintKey("rat"))

	assert.True(t, r.IsRatifier("rat"))
	assert.False(t, r.IsRatifier("check"))

	assert.True(t, r.IsPauser("pauser"))
	assert.True(t, r.IsPauser("check"))
	assert.False(t, r.IsPauser("rat"))
}

func TestEmptySlotsGrantNothing(t *testing.T) {
	r := New(staticOwner(""), nil)
	assert.False(t, r.IsMintKey(contracts.ZeroAddress))
	assert.False(t, r.IsPauser(contracts.ZeroAddress))
	assert.False(t, r.IsOwner(contracts.ZeroAddress))
	assert.False(t, r.IsRatifier("anyone"))

	r.SetAttributes(attrSet{"anyone": {contracts.AttrMintRatifier: true}})
	assert.True(t, r.IsRatifier("anyone"))
}

func TestTransferKeys(t *testing.T) {
	ctx := context.Background()
	var evs events
	r := New(staticOwner("multisig"), nil, WithSink(&evs))
	r.Restore(State{MintKey: "minter", PauseKey: "pauser"})

	err := r.TransferMintKey(ctx, "stranger", "next")
	assert.ErrorIs(t, err, contracts.ErrNotAuthorized)
	assert.Equal(t, contracts.Address("minter"), r.MintKey())

	require.NoError(t, r.TransferMintKey(ctx, "minter", "minter-2"))
	assert.True(t, r.IsMintKey("minter-2"))
	assert.False(t, r.IsMintKey("minter"))

	// The previous holder lost the right to transfer.
	assert.ErrorIs(t, r.TransferMintKey(ctx, "minter", "minter"), contracts.ErrNotAuthorized)

	require.NoError(t, r.TransferMintKey(ctx, "multisig", "minter-3"))
	require.NoError(t, r.TransferPauseKey(ctx, "pauser", "pauser-2"))
	assert.Equal(t, contracts.Address("pauser-2"), r.PauseKey())

	// Keys are independent.
	assert.ErrorIs(t, r.TransferPauseKey(ctx, "minter-3", "x"), contracts.ErrNotAuthorized)
	assert.ErrorIs(t, r.TransferPauseKey(ctx, "pauser-2", contracts.ZeroAddress), contracts.ErrInvalidAddress)

	require.Len(t, evs, 3)
	assert.Equal(t, contracts.EventRoleTransferred, evs[0].Type)
	assert.Equal(t, RoleMintKey, evs[0].Subject)
	assert.Equal(t, "minter-2", evs[0].Data["to"])
	assert.Equal(t, RolePauseKey, evs[2].Subject)

	assert.Equal(t, State{MintKey: "minter-3", PauseKey: "pauser-2"}, r.State())
}

func TestUnsetKeyTransferableOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	r := New(staticOwner("multisig"), nil)
	assert.ErrorIs(t, r.TransferMintKey(ctx, contracts.ZeroAddress, "x"), contracts.ErrNotAuthorized)
	require.NoError(t, r.TransferMintKey(ctx, "multisig", "x"))
}
