package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
	"github.com/Mindburn-Labs/mintgov/pkg/token"
)

const (
	self       contracts.Address = "controller"
	deployer   contracts.Address = "deployer"
	tokenAddr  contracts.Address = "token"
	regAddr    contracts.Address = "registry"
	sheetAddr  contracts.Address = "balance-sheet"
	oneHundred contracts.Address = "one-hundred"
	mintKey    contracts.Address = "mint-key"
	pauseKey   contracts.Address = "pause-key"
	approver   contracts.Address = "approver"
)

type fixture struct {
	ctrl  *Controller
	tok   *token.Ledger
	attrs *token.Attributes
	vault *token.Vault
	sheet *custody.Claimable
	dir   *custody.Directory
	now   time.Time
}

func mintConfig() mint.Config {
	return mint.Config{
		Thresholds: mint.NewTriple(contracts.Tokens(10), contracts.Tokens(100), contracts.Tokens(1_000)),
		Limits:     mint.NewTriple(contracts.Tokens(30), contracts.Tokens(300), contracts.Tokens(3_000)),
	}
}

// newFixture deploys a token holding 100 tokens for oneHundred, hands it to
// a controller owned by deployer and wires the registry.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		attrs: token.NewAttributes(),
		vault: token.NewVault(),
		dir:   custody.NewDirectory(),
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.sheet = custody.NewClaimable(sheetAddr, tokenAddr)
	require.NoError(t, f.dir.Register(sheetAddr, f.sheet))
	f.tok = token.NewLedger(tokenAddr, deployer, f.dir, f.vault)
	require.NoError(t, f.dir.Register(tokenAddr, f.tok))
	require.NoError(t, f.dir.Register(regAddr, f.attrs))
	require.NoError(t, f.tok.Mint(ctx, deployer, oneHundred, contracts.Tokens(100)))

	ctrl, err := New(Config{Self: self, Owner: deployer, Mint: mintConfig()},
		WithDirectory(f.dir), WithVault(f.vault), WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.NoError(t, f.dir.Register(self, ctrl))
	f.ctrl = ctrl

	require.NoError(t, ctrl.SetRegistry(ctx, deployer, regAddr))
	require.NoError(t, f.tok.TransferOwnership(ctx, deployer, self))
	require.NoError(t, ctrl.IssueClaimOwnership(ctx, deployer, tokenAddr))
	require.NoError(t, ctrl.SetToken(ctx, deployer, tokenAddr))
	require.NoError(t, ctrl.SetTokenRegistry(ctx, deployer, regAddr))

	f.attrs.Set(oneHundred, contracts.AttrKYCAML, true)
	f.attrs.Set(approver, contracts.AttrMintRatifier, true)
	f.attrs.Set(pauseKey, contracts.AttrMintChecker, true)
	return f
}

func TestNewRequiresAddresses(t *testing.T) {
	_, err := New(Config{Self: self, Mint: mintConfig()})
	assert.ErrorIs(t, err, contracts.ErrInvalidAddress)

	_, err = New(Config{Self: self, Owner: deployer})
	assert.ErrorIs(t, err, contracts.ErrInvalidThresholds)
}

func TestSetupWiring(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, self, f.tok.Owner())
	assert.Equal(t, tokenAddr, f.ctrl.Token())
	assert.Equal(t, regAddr, f.ctrl.Registry())
	assert.Equal(t, regAddr, f.tok.Info().Registry)
	assert.True(t, f.ctrl.Roles().IsRatifier(approver))
	assert.True(t, f.ctrl.Roles().IsPauser(pauseKey))
}

func TestAdminIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	checks := map[string]error{
		"setToken":        f.ctrl.SetToken(ctx, oneHundred, tokenAddr),
		"setRegistry":     f.ctrl.SetRegistry(ctx, oneHundred, regAddr),
		"changeTokenName": f.ctrl.ChangeTokenName(ctx, oneHundred, "X", "X"),
		"transferChild":   f.ctrl.TransferChild(ctx, oneHundred, tokenAddr, oneHundred),
		"unpauseToken":    f.ctrl.UnpauseToken(ctx, oneHundred),
		"pauseToken":      f.ctrl.PauseToken(ctx, oneHundred),
		"setFastPause":    f.ctrl.SetFastPause(ctx, oneHundred, oneHundred),
		"reclaimEther":    f.ctrl.ReclaimEther(ctx, oneHundred, oneHundred),
		"changeStaker":    f.ctrl.ChangeStaker(ctx, oneHundred, oneHundred),
	}
	for name, err := range checks {
		assert.ErrorIs(t, err, contracts.ErrNotAuthorized, name)
	}
}

func TestChangeTokenNameNormalises(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.ChangeTokenName(ctx, deployer, " Café Dollar ", "CD"))
	assert.Equal(t, "Café Dollar", f.tok.Info().Name)

	err := f.ctrl.ChangeTokenName(ctx, deployer, "  ", "CD")
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestTokenFailureIsExecutionFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tok.FailOn("setGlobalPause", errors.New("reverted"))

	err := f.ctrl.SetGlobalPause(ctx, deployer, oneHundred)
	assert.ErrorIs(t, err, contracts.ErrExecutionFailed)
	assert.True(t, f.tok.Info().GlobalPause.IsZero())
}

func TestFastPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetFastPause(ctx, deployer, pauseKey))

	require.NoError(t, f.ctrl.PauseToken(ctx, pauseKey))
	assert.True(t, f.tok.Paused())
	assert.ErrorIs(t, f.ctrl.UnpauseToken(ctx, pauseKey), contracts.ErrNotAuthorized)
	require.NoError(t, f.ctrl.UnpauseToken(ctx, deployer))
	assert.False(t, f.tok.Paused())
}

func TestWipeBlacklistedRequiresAttribute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ctrl.WipeBlacklisted(ctx, deployer, oneHundred)
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)

	f.attrs.Set(oneHundred, contracts.AttrBlacklisted, true)
	require.NoError(t, f.ctrl.WipeBlacklisted(ctx, deployer, oneHundred))
	assert.True(t, f.tok.BalanceOf(oneHundred).IsZero())
}

func TestBurnBoundsAndFeesValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ctrl.SetBurnBounds(ctx, deployer, contracts.Tokens(5), contracts.Tokens(4))
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
	err = f.ctrl.SetBurnBounds(ctx, deployer, nil, contracts.Tokens(4))
	assert.ErrorIs(t, err, contracts.ErrInvalidAmount)
	require.NoError(t, f.ctrl.SetBurnBounds(ctx, deployer, contracts.Tokens(3), contracts.Tokens(4)))

	err = f.ctrl.ChangeStakingFees(ctx, deployer, contracts.StakingFees{TransferFeeDenominator: 1, MintFeeDenominator: 1})
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestMintThroughRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mints := f.ctrl.Mints()
	require.NoError(t, mints.RefillJumboPool(ctx, deployer))
	_, err := mints.RefillRatifiedPool(ctx, deployer)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.Roles().TransferMintKey(ctx, deployer, mintKey))

	idx, err := mints.RequestMint(ctx, mintKey, oneHundred, contracts.Tokens(50))
	require.NoError(t, err)
	done, err := mints.RatifyMint(ctx, approver, idx, oneHundred, contracts.Tokens(50))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, contracts.Tokens(150), f.tok.BalanceOf(oneHundred))

	// Pausing the token surfaces as an execution failure of the mint.
	require.NoError(t, f.ctrl.PauseToken(ctx, deployer))
	idx, err = mints.RequestMint(ctx, mintKey, oneHundred, contracts.Tokens(50))
	require.NoError(t, err)
	_, err = mints.RatifyMint(ctx, approver, idx, oneHundred, contracts.Tokens(50))
	assert.ErrorIs(t, err, contracts.ErrExecutionFailed)
	assert.ErrorIs(t, err, token.ErrPaused)
}

func TestExecuteRejectsEngineKinds(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.Execute(context.Background(), deployer, multisig.UpdateOwner{Old: "a", New: "b"})
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestExecuteSetTierRuleBoundsDelay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.ctrl.Mints().Rules()[mint.TierInstant]

	err := f.ctrl.Execute(ctx, deployer, multisig.SetTierRule{Tier: "instant", DelaySeconds: 18446744074})
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
	err = f.ctrl.Execute(ctx, deployer, multisig.SetTierRule{Tier: "instant", DelaySeconds: maxDelaySeconds + 1})
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
	assert.Equal(t, before, f.ctrl.Mints().Rules()[mint.TierInstant])

	require.NoError(t, f.ctrl.Execute(ctx, deployer, multisig.SetTierRule{Tier: "instant", DelaySeconds: 7200}))
	assert.Equal(t, 2*time.Hour, f.ctrl.Mints().Rules()[mint.TierInstant].Delay)
}

func TestStateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.SetFastPause(ctx, deployer, pauseKey))
	require.NoError(t, f.ctrl.Roles().TransferMintKey(ctx, deployer, mintKey))
	_, err := f.ctrl.Mints().RequestMint(ctx, mintKey, oneHundred, uint256.NewInt(5))
	require.NoError(t, err)
	require.NoError(t, f.ctrl.TransferOwnership(ctx, deployer, "multisig"))

	st := f.ctrl.State()

	other, err := New(Config{Self: self, Owner: "someone", Mint: mintConfig()}, WithDirectory(f.dir))
	require.NoError(t, err)
	require.NoError(t, other.Restore(st))
	assert.Equal(t, st, other.State())
	assert.Equal(t, contracts.Address("multisig"), other.PendingOwner())
	assert.True(t, other.Roles().IsRatifier(approver))

	st.Token = "missing"
	assert.Error(t, other.Restore(st))
}
