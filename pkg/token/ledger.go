// Package token provides in-memory reference collaborators: a token
// balance ledger, a compliance attribute registry and an asset vault. They
// back the tests and the local demo; production deployments supply their
// own implementations of the contracts interfaces.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
)

// ErrPaused is returned by Mint while the token is paused.
var ErrPaused = errors.New("token paused")

// Ledger is an owner-administered token balance sheet.
type Ledger struct {
	*custody.Claimable

	mu          sync.Mutex
	name        string
	symbol      string
	balances    map[contracts.Address]*uint256.Int
	supply      *uint256.Int
	paused      bool
	fees        contracts.StakingFees
	staker      contracts.Address
	burnMin     *uint256.Int
	burnMax     *uint256.Int
	registry    contracts.Address
	globalPause contracts.Address

	children *custody.Directory
	reclaim  *custody.Reclaimer
	failures map[string]error
}

// NewLedger creates a token at self owned by owner. children resolves the
// satellite contracts the token owns; vault holds its native and foreign
// balances. Both may be nil.
func NewLedger(self, owner contracts.Address, children *custody.Directory, vault contracts.Vault) *Ledger {
	if children == nil {
		children = custody.NewDirectory()
	}
	return &Ledger{
		Claimable: custody.NewClaimable(self, owner),
		name:      "TrueUSD",
		symbol:    "TUSD",
		balances:  make(map[contracts.Address]*uint256.Int),
		supply:    new(uint256.Int),
		burnMin:   new(uint256.Int),
		burnMax:   new(uint256.Int),
		children:  children,
		reclaim:   custody.NewReclaimer(self, vault),
		failures:  make(map[string]error),
	}
}

// FailOn makes the named method fail with err until cleared with a nil err.
func (l *Ledger) FailOn(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failures, method)
		return
	}
	l.failures[method] = err
}

// guard checks injected failures and ownership. l.mu must be held.
func (l *Ledger) guard(method string, caller contracts.Address) error {
	if err := l.failures[method]; err != nil {
		return err
	}
	return l.RequireOwner(caller)
}

func (l *Ledger) Mint(_ context.Context, caller, to contracts.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard("mint", caller); err != nil {
		return err
	}
	if l.paused {
		return ErrPaused
	}
	if to.IsZero() {
		return fmt.Errorf("%w: mint to zero address", contracts.ErrInvalidAddress)
	}
	if amount == nil || amount.IsZero() {
		return contracts.ErrInvalidAmount
	}
	supply, overflow := new(uint256.Int).AddOverflow(l.supply, amount)
	if overflow {
		return fmt.Errorf("%w: supply overflow", contracts.ErrInvalidAmount)
	}
	l.supply = supply
	l.balances[to] = new(uint256.Int).Add(contracts.Clone(l.balances[to]), amount)
	return nil
}

func (l *Ledger) BalanceOf(who contracts.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return contracts.Clone(l.balances[who])
}

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.Clone()
}

func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

func (l *Ledger) Pause(_ context.Context, caller contracts.Address) error {
	return l.set("pause", caller, func() { l.paused = true })
}

func (l *Ledger) Unpause(_ context.Context, caller contracts.Address) error {
	return l.set("unpause", caller, func() { l.paused = false })
}

func (l *Ledger) ChangeStakingFees(_ context.Context, caller contracts.Address, fees contracts.StakingFees) error {
	return l.set("changeStakingFees", caller, func() {
		fees.MintFeeFlat = contracts.Clone(fees.MintFeeFlat)
		fees.BurnFeeFlat = contracts.Clone(fees.BurnFeeFlat)
		l.fees = fees
	})
}

func (l *Ledger) ChangeStaker(_ context.Context, caller, staker contracts.Address) error {
	return l.set("changeStaker", caller, func() { l.staker = staker })
}

func (l *Ledger) SetBurnBounds(_ context.Context, caller contracts.Address, min, max *uint256.Int) error {
	return l.set("setBurnBounds", caller, func() {
		l.burnMin, l.burnMax = contracts.Clone(min), contracts.Clone(max)
	})
}

func (l *Ledger) ChangeName(_ context.Context, caller contracts.Address, name, symbol string) error {
	return l.set("changeName", caller, func() { l.name, l.symbol = name, symbol })
}

func (l *Ledger) SetRegistry(_ context.Context, caller, registry contracts.Address) error {
	return l.set("setRegistry", caller, func() { l.registry = registry })
}

func (l *Ledger) SetGlobalPause(_ context.Context, caller, pauser contracts.Address) error {
	return l.set("setGlobalPause", caller, func() { l.globalPause = pauser })
}

// WipeBlacklisted burns the whole balance of account.
func (l *Ledger) WipeBlacklisted(_ context.Context, caller, account contracts.Address) error {
	return l.set("wipeBlacklisted", caller, func() {
		if bal, ok := l.balances[account]; ok {
			l.supply = new(uint256.Int).Sub(l.supply, bal)
			delete(l.balances, account)
		}
	})
}

func (l *Ledger) ReclaimEther(ctx context.Context, caller, to contracts.Address) error {
	if err := l.check("reclaimEther", caller); err != nil {
		return err
	}
	return l.reclaim.ReclaimEther(ctx, to)
}

func (l *Ledger) ReclaimToken(ctx context.Context, caller, token, to contracts.Address) error {
	if err := l.check("reclaimToken", caller); err != nil {
		return err
	}
	return l.reclaim.ReclaimToken(ctx, token, to)
}

// ReclaimContract hands a satellite owned by the token back to the token's
// owner, who must then claim it.
func (l *Ledger) ReclaimContract(ctx context.Context, caller, child contracts.Address) error {
	if err := l.check("reclaimContract", caller); err != nil {
		return err
	}
	return l.children.TransferChild(ctx, l.Address(), child, caller)
}

func (l *Ledger) check(method string, caller contracts.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.guard(method, caller)
}

func (l *Ledger) set(method string, caller contracts.Address, apply func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.guard(method, caller); err != nil {
		return err
	}
	apply()
	return nil
}

// Info is a read-only view of the token's administrative settings.
type Info struct {
	Name        string                `json:"name"`
	Symbol      string                `json:"symbol"`
	TotalSupply string                `json:"total_supply"`
	Paused      bool                  `json:"paused"`
	Fees        contracts.StakingFees `json:"fees"`
	Staker      contracts.Address     `json:"staker"`
	BurnMin     string                `json:"burn_min"`
	BurnMax     string                `json:"burn_max"`
	Registry    contracts.Address     `json:"registry"`
	GlobalPause contracts.Address     `json:"global_pause"`
}

func (l *Ledger) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Info{
		Name:        l.name,
		Symbol:      l.symbol,
		TotalSupply: l.supply.Dec(),
		Paused:      l.paused,
		Fees:        l.fees,
		Staker:      l.staker,
		BurnMin:     l.burnMin.Dec(),
		BurnMax:     l.burnMax.Dec(),
		Registry:    l.registry,
		GlobalPause: l.globalPause,
	}
}
