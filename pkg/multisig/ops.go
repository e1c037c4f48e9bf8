package multisig

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Named operations. Each builds its action and routes it through
// ProposeOrCosign, so they share the single pending slot and the quorum.

func (e *Engine) onSelf(ctx context.Context, signer contracts.Address, p Payload) (Outcome, error) {
	return e.ProposeOrCosign(ctx, signer, Action{Target: e.self, Payload: p})
}

func (e *Engine) onController(ctx context.Context, signer contracts.Address, p Payload) (Outcome, error) {
	return e.ProposeOrCosign(ctx, signer, Action{Target: e.Controller(), Payload: p})
}

func (e *Engine) UpdateOwner(ctx context.Context, signer, old, replacement contracts.Address) (Outcome, error) {
	return e.onSelf(ctx, signer, UpdateOwner{Old: old, New: replacement})
}

func (e *Engine) SetController(ctx context.Context, signer, controller contracts.Address) (Outcome, error) {
	return e.onSelf(ctx, signer, SetController{Controller: controller})
}

func (e *Engine) ClaimContract(ctx context.Context, signer, contract contracts.Address) (Outcome, error) {
	return e.onSelf(ctx, signer, ClaimContract{Contract: contract})
}

func (e *Engine) ReclaimContract(ctx context.Context, signer, contract, newOwner contracts.Address) (Outcome, error) {
	return e.onSelf(ctx, signer, ReclaimContract{Contract: contract, NewOwner: newOwner})
}

func (e *Engine) ReclaimEther(ctx context.Context, signer, to contracts.Address) (Outcome, error) {
	return e.onSelf(ctx, signer, ReclaimEther{To: to})
}

func (e *Engine) ReclaimToken(ctx context.Context, signer, token, to contracts.Address) (Outcome, error) {
	return e.onSelf(ctx, signer, ReclaimToken{Token: token, To: to})
}

func (e *Engine) TransferControllerOwnership(ctx context.Context, signer, newOwner contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, TransferOwnership{NewOwner: newOwner})
}

func (e *Engine) TransferChild(ctx context.Context, signer, child, newOwner contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, TransferChild{Child: child, NewOwner: newOwner})
}

func (e *Engine) IssueClaimOwnership(ctx context.Context, signer, contract contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, IssueClaimOwnership{Contract: contract})
}

func (e *Engine) RequestReclaimContract(ctx context.Context, signer, contract contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, RequestReclaimContract{Contract: contract})
}

func (e *Engine) RequestReclaimEther(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, RequestReclaimEther{})
}

func (e *Engine) RequestReclaimToken(ctx context.Context, signer, token contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, RequestReclaimToken{Token: token})
}

func (e *Engine) ControllerReclaimEther(ctx context.Context, signer, to contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, ControllerReclaimEther{To: to})
}

func (e *Engine) ControllerReclaimToken(ctx context.Context, signer, token, to contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, ControllerReclaimToken{Token: token, To: to})
}

func (e *Engine) SetMintThresholds(ctx context.Context, signer contracts.Address, instant, ratified, jumbo *uint256.Int) (Outcome, error) {
	return e.onController(ctx, signer, SetMintThresholds{Instant: instant, Ratified: ratified, Jumbo: jumbo})
}

func (e *Engine) SetMintLimits(ctx context.Context, signer contracts.Address, instant, ratified, jumbo *uint256.Int) (Outcome, error) {
	return e.onController(ctx, signer, SetMintLimits{Instant: instant, Ratified: ratified, Jumbo: jumbo})
}

func (e *Engine) SetTierRule(ctx context.Context, signer contracts.Address, tier string, ratifications uint64, delay time.Duration) (Outcome, error) {
	return e.onController(ctx, signer, SetTierRule{Tier: tier, Ratifications: ratifications, DelaySeconds: uint64(delay / time.Second)})
}

func (e *Engine) RefillInstantMintPool(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, RefillInstantMintPool{})
}

func (e *Engine) RefillRatifiedMintPool(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, RefillRatifiedMintPool{})
}

func (e *Engine) RefillJumboMintPool(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, RefillJumboMintPool{})
}

func (e *Engine) PauseMints(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, PauseMints{})
}

func (e *Engine) UnpauseMints(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, UnpauseMints{})
}

func (e *Engine) InvalidateAllPendingMints(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, InvalidateAllPendingMints{})
}

func (e *Engine) PauseMint(ctx context.Context, signer contracts.Address, index uint64) (Outcome, error) {
	return e.onController(ctx, signer, PauseMint{Index: index})
}

func (e *Engine) UnpauseMint(ctx context.Context, signer contracts.Address, index uint64) (Outcome, error) {
	return e.onController(ctx, signer, UnpauseMint{Index: index})
}

func (e *Engine) RevokeMint(ctx context.Context, signer contracts.Address, index uint64) (Outcome, error) {
	return e.onController(ctx, signer, RevokeMint{Index: index})
}

func (e *Engine) FinalizeMint(ctx context.Context, signer contracts.Address, index uint64) (Outcome, error) {
	return e.onController(ctx, signer, FinalizeMint{Index: index})
}

func (e *Engine) RequestMint(ctx context.Context, signer, to contracts.Address, amount *uint256.Int) (Outcome, error) {
	return e.onController(ctx, signer, RequestMint{To: to, Amount: amount})
}

func (e *Engine) InstantMint(ctx context.Context, signer, to contracts.Address, amount *uint256.Int) (Outcome, error) {
	return e.onController(ctx, signer, InstantMint{To: to, Amount: amount})
}

func (e *Engine) RatifyMint(ctx context.Context, signer contracts.Address, index uint64, to contracts.Address, amount *uint256.Int) (Outcome, error) {
	return e.onController(ctx, signer, RatifyMint{Index: index, To: to, Amount: amount})
}

func (e *Engine) TransferMintKey(ctx context.Context, signer, newKey contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, TransferMintKey{NewKey: newKey})
}

func (e *Engine) TransferPauseKey(ctx context.Context, signer, newKey contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, TransferPauseKey{NewKey: newKey})
}

func (e *Engine) SetToken(ctx context.Context, signer, token contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, SetToken{Token: token})
}

func (e *Engine) SetRegistry(ctx context.Context, signer, registry contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, SetRegistry{Registry: registry})
}

func (e *Engine) SetTokenRegistry(ctx context.Context, signer, registry contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, SetTokenRegistry{Registry: registry})
}

func (e *Engine) ChangeTokenName(ctx context.Context, signer contracts.Address, name, symbol string) (Outcome, error) {
	return e.onController(ctx, signer, ChangeTokenName{Name: name, Symbol: symbol})
}

func (e *Engine) SetGlobalPause(ctx context.Context, signer, pauser contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, SetGlobalPause{Pauser: pauser})
}

func (e *Engine) SetFastPause(ctx context.Context, signer, key contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, SetFastPause{Key: key})
}

func (e *Engine) PauseToken(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, PauseToken{})
}

func (e *Engine) UnpauseToken(ctx context.Context, signer contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, UnpauseToken{})
}

func (e *Engine) WipeBlacklisted(ctx context.Context, signer, account contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, WipeBlacklisted{Account: account})
}

func (e *Engine) SetBurnBounds(ctx context.Context, signer contracts.Address, min, max *uint256.Int) (Outcome, error) {
	return e.onController(ctx, signer, SetBurnBounds{Min: min, Max: max})
}

func (e *Engine) ChangeStakingFees(ctx context.Context, signer contracts.Address, fees contracts.StakingFees) (Outcome, error) {
	return e.onController(ctx, signer, ChangeStakingFees{Fees: fees})
}

func (e *Engine) ChangeStaker(ctx context.Context, signer, staker contracts.Address) (Outcome, error) {
	return e.onController(ctx, signer, ChangeStaker{Staker: staker})
}
