package contracts

import (
	"context"

	"github.com/holiman/uint256"
)

// Registry attribute names consulted for role membership.
const (
	AttrMintRatifier = "isTUSDMintApprover"
	AttrMintChecker  = "isTUSDMintChecker"
	AttrBlacklisted  = "isBlacklisted"
	AttrKYCAML       = "hasPassedKYC/AML"
	AttrCanBurn      = "canBurn"
)

// Ownable is a contract with claimable two-step ownership.
type Ownable interface {
	Owner() Address
	TransferOwnership(ctx context.Context, caller, newOwner Address) error
	ClaimOwnership(ctx context.Context, caller Address) error
}

// StakingFees is the fee schedule pushed to the token.
type StakingFees struct {
	TransferFeeNumerator   uint64       `json:"transfer_fee_numerator"`
	TransferFeeDenominator uint64       `json:"transfer_fee_denominator"`
	MintFeeNumerator       uint64       `json:"mint_fee_numerator"`
	MintFeeDenominator     uint64       `json:"mint_fee_denominator"`
	MintFeeFlat            *uint256.Int `json:"mint_fee_flat"`
	BurnFeeNumerator       uint64       `json:"burn_fee_numerator"`
	BurnFeeDenominator     uint64       `json:"burn_fee_denominator"`
	BurnFeeFlat            *uint256.Int `json:"burn_fee_flat"`
}

// Token is the balance ledger the controller administers. Every mutating
// call names its caller; the token enforces its own ownership checks and
// fails atomically.
type Token interface {
	Ownable
	Mint(ctx context.Context, caller, to Address, amount *uint256.Int) error
	BalanceOf(who Address) *uint256.Int
	TotalSupply() *uint256.Int
	Pause(ctx context.Context, caller Address) error
	Unpause(ctx context.Context, caller Address) error
	ChangeStakingFees(ctx context.Context, caller Address, fees StakingFees) error
	ChangeStaker(ctx context.Context, caller, staker Address) error
	SetBurnBounds(ctx context.Context, caller Address, min, max *uint256.Int) error
	ChangeName(ctx context.Context, caller Address, name, symbol string) error
	SetRegistry(ctx context.Context, caller, registry Address) error
	SetGlobalPause(ctx context.Context, caller, pauser Address) error
	WipeBlacklisted(ctx context.Context, caller, account Address) error
	ReclaimEther(ctx context.Context, caller, to Address) error
	ReclaimToken(ctx context.Context, caller, token, to Address) error
	ReclaimContract(ctx context.Context, caller, child Address) error
}

// Registry answers attribute lookups for compliance and role membership.
type Registry interface {
	HasAttribute(who Address, attribute string) bool
}

// Vault moves native balance and foreign tokens held by a contract.
type Vault interface {
	SweepEther(ctx context.Context, from, to Address) error
	SweepToken(ctx context.Context, token, from, to Address) error
}
