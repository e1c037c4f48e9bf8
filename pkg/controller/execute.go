package controller

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
)

var _ multisig.Executor = (*Controller)(nil)

// maxDelaySeconds is the longest time-lock a time.Duration can hold.
const maxDelaySeconds = uint64(math.MaxInt64 / int64(time.Second))

// Execute runs an action the owner quorum authorised. caller is the
// engine, which must own the controller for owner-gated operations.
func (c *Controller) Execute(ctx context.Context, caller contracts.Address, p multisig.Payload) error {
	switch op := p.(type) {
	case multisig.TransferOwnership:
		return c.TransferOwnership(ctx, caller, op.NewOwner)
	case multisig.TransferChild:
		return c.TransferChild(ctx, caller, op.Child, op.NewOwner)
	case multisig.IssueClaimOwnership:
		return c.IssueClaimOwnership(ctx, caller, op.Contract)
	case multisig.RequestReclaimContract:
		return c.RequestReclaimContract(ctx, caller, op.Contract)
	case multisig.RequestReclaimEther:
		return c.RequestReclaimEther(ctx, caller)
	case multisig.RequestReclaimToken:
		return c.RequestReclaimToken(ctx, caller, op.Token)
	case multisig.ControllerReclaimEther:
		return c.ReclaimEther(ctx, caller, op.To)
	case multisig.ControllerReclaimToken:
		return c.ReclaimToken(ctx, caller, op.Token, op.To)

	case multisig.SetMintThresholds:
		return c.mints.SetMintThresholds(ctx, caller, mint.NewTriple(op.Instant, op.Ratified, op.Jumbo))
	case multisig.SetMintLimits:
		return c.mints.SetMintLimits(ctx, caller, mint.NewTriple(op.Instant, op.Ratified, op.Jumbo))
	case multisig.SetTierRule:
		tier, err := mint.ParseTier(op.Tier)
		if err != nil {
			return err
		}
		if op.DelaySeconds > maxDelaySeconds {
			return fmt.Errorf("%w: delay of %d seconds out of range", contracts.ErrInvalidArgument, op.DelaySeconds)
		}
		return c.mints.SetTierRule(ctx, caller, tier, mint.TierRule{
			Ratifications: int(op.Ratifications),
			Delay:         time.Duration(op.DelaySeconds) * time.Second,
		})
	case multisig.RefillInstantMintPool:
		return c.mints.RefillInstantPool(ctx, caller)
	case multisig.RefillRatifiedMintPool:
		_, err := c.mints.RefillRatifiedPool(ctx, caller)
		return err
	case multisig.RefillJumboMintPool:
		return c.mints.RefillJumboPool(ctx, caller)
	case multisig.PauseMints:
		return c.mints.PauseMints(ctx, caller)
	case multisig.UnpauseMints:
		return c.mints.UnpauseMints(ctx, caller)
	case multisig.InvalidateAllPendingMints:
		return c.mints.InvalidateAllPendingMints(ctx, caller)
	case multisig.PauseMint:
		return c.mints.PauseMint(ctx, caller, op.Index)
	case multisig.UnpauseMint:
		return c.mints.UnpauseMint(ctx, caller, op.Index)
	case multisig.RevokeMint:
		return c.mints.RevokeMint(ctx, caller, op.Index)
	case multisig.FinalizeMint:
		return c.mints.FinalizeMint(ctx, caller, op.Index)
	case multisig.RequestMint:
		_, err := c.mints.RequestMint(ctx, caller, op.To, op.Amount)
		return err
	case multisig.InstantMint:
		return c.mints.InstantMint(ctx, caller, op.To, op.Amount)
	case multisig.RatifyMint:
		_, err := c.mints.RatifyMint(ctx, caller, op.Index, op.To, op.Amount)
		return err
	case multisig.TransferMintKey:
		return c.roles.TransferMintKey(ctx, caller, op.NewKey)
	case multisig.TransferPauseKey:
		return c.roles.TransferPauseKey(ctx, caller, op.NewKey)

	case multisig.SetToken:
		return c.SetToken(ctx, caller, op.Token)
	case multisig.SetRegistry:
		return c.SetRegistry(ctx, caller, op.Registry)
	case multisig.SetTokenRegistry:
		return c.SetTokenRegistry(ctx, caller, op.Registry)
	case multisig.ChangeTokenName:
		return c.ChangeTokenName(ctx, caller, op.Name, op.Symbol)
	case multisig.SetGlobalPause:
		return c.SetGlobalPause(ctx, caller, op.Pauser)
	case multisig.SetFastPause:
		return c.SetFastPause(ctx, caller, op.Key)
	case multisig.PauseToken:
		return c.PauseToken(ctx, caller)
	case multisig.UnpauseToken:
		return c.UnpauseToken(ctx, caller)
	case multisig.WipeBlacklisted:
		return c.WipeBlacklisted(ctx, caller, op.Account)
	case multisig.SetBurnBounds:
		return c.SetBurnBounds(ctx, caller, op.Min, op.Max)
	case multisig.ChangeStakingFees:
		return c.ChangeStakingFees(ctx, caller, op.Fees)
	case multisig.ChangeStaker:
		return c.ChangeStaker(ctx, caller, op.Staker)
	}
	return fmt.Errorf("%w: controller cannot execute %s", contracts.ErrInvalidArgument, p.Kind())
}
