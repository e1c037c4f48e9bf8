package token

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
)

var _ contracts.Token = (*Ledger)(nil)
var _ contracts.Registry = (*Attributes)(nil)
var _ contracts.Vault = (*Vault)(nil)

func TestLedgerMint(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("token", "controller", nil, nil)

	assert.ErrorIs(t, l.Mint(ctx, "stranger", "alice", contracts.Tokens(1)), contracts.ErrNotAuthorized)
	require.NoError(t, l.Mint(ctx, "controller", "alice", contracts.Tokens(5)))
	require.NoError(t, l.Mint(ctx, "controller", "alice", contracts.Tokens(5)))
	assert.Equal(t, contracts.Tokens(10), l.BalanceOf("alice"))
	assert.Equal(t, contracts.Tokens(10), l.TotalSupply())
	assert.True(t, l.BalanceOf("bob").IsZero())

	require.NoError(t, l.Pause(ctx, "controller"))
	assert.ErrorIs(t, l.Mint(ctx, "controller", "alice", contracts.Tokens(1)), ErrPaused)
	require.NoError(t, l.Unpause(ctx, "controller"))

	assert.ErrorIs(t, l.Mint(ctx, "controller", "alice", new(uint256.Int)), contracts.ErrInvalidAmount)
}

func TestLedgerInjectedFailure(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("token", "controller", nil, nil)
	boom := errors.New("boom")

	l.FailOn("changeName", boom)
	assert.ErrorIs(t, l.ChangeName(ctx, "controller", "X", "X"), boom)
	assert.Equal(t, "TrueUSD", l.Info().Name)

	l.FailOn("changeName", nil)
	require.NoError(t, l.ChangeName(ctx, "controller", "X", "XX"))
	assert.Equal(t, "XX", l.Info().Symbol)
}

func TestLedgerAdmin(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("token", "controller", nil, nil)
	require.NoError(t, l.Mint(ctx, "controller", "bad", contracts.Tokens(3)))
	require.NoError(t, l.Mint(ctx, "controller", "good", contracts.Tokens(4)))

	require.NoError(t, l.WipeBlacklisted(ctx, "controller", "bad"))
	assert.True(t, l.BalanceOf("bad").IsZero())
	assert.Equal(t, contracts.Tokens(4), l.TotalSupply())

	require.NoError(t, l.SetBurnBounds(ctx, "controller", contracts.Tokens(1), contracts.Tokens(9)))
	require.NoError(t, l.ChangeStaker(ctx, "controller", "staker"))
	require.NoError(t, l.SetRegistry(ctx, "controller", "registry"))
	require.NoError(t, l.SetGlobalPause(ctx, "controller", "gp"))
	fees := contracts.StakingFees{TransferFeeDenominator: 10000, MintFeeDenominator: 10000, BurnFeeDenominator: 10000}
	require.NoError(t, l.ChangeStakingFees(ctx, "controller", fees))

	info := l.Info()
	assert.Equal(t, contracts.Tokens(1).Dec(), info.BurnMin)
	assert.Equal(t, contracts.Address("staker"), info.Staker)
	assert.Equal(t, contracts.Address("registry"), info.Registry)
	assert.Equal(t, contracts.Address("gp"), info.GlobalPause)
	assert.Equal(t, uint64(10000), info.Fees.MintFeeDenominator)
	assert.Equal(t, "0", info.Fees.MintFeeFlat.Dec())

	assert.ErrorIs(t, l.SetRegistry(ctx, "stranger", "x"), contracts.ErrNotAuthorized)
}

func TestLedgerReclaims(t *testing.T) {
	ctx := context.Background()
	vault := NewVault()
	children := custody.NewDirectory()
	sheet := custody.NewClaimable("balance-sheet", "token")
	require.NoError(t, children.Register("balance-sheet", sheet))
	l := NewLedger("token", "controller", children, vault)

	vault.DepositEther("token", uint256.NewInt(7))
	vault.DepositToken("usdc", "token", uint256.NewInt(9))

	require.NoError(t, l.ReclaimEther(ctx, "controller", "controller"))
	require.NoError(t, l.ReclaimToken(ctx, "controller", "usdc", "controller"))
	assert.Equal(t, uint64(7), vault.Ether("controller").Uint64())
	assert.Equal(t, uint64(9), vault.Token("usdc", "controller").Uint64())
	assert.True(t, vault.Ether("token").IsZero())

	require.NoError(t, l.ReclaimContract(ctx, "controller", "balance-sheet"))
	assert.Equal(t, contracts.Address("controller"), sheet.PendingOwner())

	assert.ErrorIs(t, l.ReclaimEther(ctx, "stranger", "stranger"), contracts.ErrNotAuthorized)
	err := l.ReclaimContract(ctx, "controller", "unknown")
	assert.ErrorIs(t, err, contracts.ErrExecutionFailed)
}

func TestAttributes(t *testing.T) {
	a := NewAttributes()
	a.Set("r2", contracts.AttrMintRatifier, true)
	a.Set("r1", contracts.AttrMintRatifier, true)
	a.Set("c", contracts.AttrMintChecker, true)

	assert.True(t, a.HasAttribute("r1", contracts.AttrMintRatifier))
	assert.False(t, a.HasAttribute("c", contracts.AttrMintRatifier))
	assert.Equal(t, []contracts.Address{"r1", "r2"}, a.Holders(contracts.AttrMintRatifier))

	a.Set("r1", contracts.AttrMintRatifier, false)
	assert.False(t, a.HasAttribute("r1", contracts.AttrMintRatifier))
	a.Set("nobody", contracts.AttrMintRatifier, false)
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewLedger("token", "controller", nil, nil)
	require.NoError(t, l.Mint(ctx, "controller", "alice", contracts.Tokens(3)))
	require.NoError(t, l.Mint(ctx, "controller", "bob", contracts.Tokens(4)))
	require.NoError(t, l.SetBurnBounds(ctx, "controller", uint256.NewInt(1), uint256.NewInt(9)))
	require.NoError(t, l.TransferOwnership(ctx, "controller", "next"))

	restored := NewLedger("token", "someone", nil, nil)
	require.NoError(t, restored.Restore(l.State()))
	assert.Equal(t, contracts.Tokens(7), restored.TotalSupply())
	assert.Equal(t, contracts.Tokens(3), restored.BalanceOf("alice"))
	assert.Equal(t, l.Info(), restored.Info())
	assert.Equal(t, contracts.Address("controller"), restored.Owner())
	assert.Equal(t, contracts.Address("next"), restored.PendingOwner())

	bad := l.State()
	bad.Balances["mallory"] = "not-a-number"
	assert.ErrorIs(t, restored.Restore(bad), contracts.ErrInvalidAmount)

	a := NewAttributes()
	a.Set("r", contracts.AttrMintRatifier, true)
	a.Set("r", contracts.AttrMintChecker, true)
	b := NewAttributes()
	b.Restore(a.State())
	assert.True(t, b.HasAttribute("r", contracts.AttrMintChecker))
	assert.Equal(t, a.State(), b.State())

	v := NewVault()
	v.DepositEther("token", uint256.NewInt(5))
	v.DepositToken("usdc", "token", uint256.NewInt(6))
	w := NewVault()
	require.NoError(t, w.Restore(v.State()))
	assert.Equal(t, uint64(5), w.Ether("token").Uint64())
	assert.Equal(t, uint64(6), w.Token("usdc", "token").Uint64())
}
