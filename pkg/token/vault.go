package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Vault tracks native and foreign-token balances held by contracts.
type Vault struct {
	mu     sync.Mutex
	ether  map[contracts.Address]*uint256.Int
	tokens map[contracts.Address]map[contracts.Address]*uint256.Int
}

func NewVault() *Vault {
	return &Vault{
		ether:  make(map[contracts.Address]*uint256.Int),
		tokens: make(map[contracts.Address]map[contracts.Address]*uint256.Int),
	}
}

// DepositEther credits holder with amount of native balance.
func (v *Vault) DepositEther(holder contracts.Address, amount *uint256.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ether[holder] = new(uint256.Int).Add(contracts.Clone(v.ether[holder]), amount)
}

// DepositToken credits holder with amount of token.
func (v *Vault) DepositToken(token, holder contracts.Address, amount *uint256.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tokens[token] == nil {
		v.tokens[token] = make(map[contracts.Address]*uint256.Int)
	}
	v.tokens[token][holder] = new(uint256.Int).Add(contracts.Clone(v.tokens[token][holder]), amount)
}

func (v *Vault) Ether(holder contracts.Address) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return contracts.Clone(v.ether[holder])
}

func (v *Vault) Token(token, holder contracts.Address) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return contracts.Clone(v.tokens[token][holder])
}

// SweepEther moves the whole native balance of from to to.
func (v *Vault) SweepEther(_ context.Context, from, to contracts.Address) error {
	if to.IsZero() {
		return fmt.Errorf("%w: sweep recipient", contracts.ErrInvalidAddress)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	bal := contracts.Clone(v.ether[from])
	delete(v.ether, from)
	v.ether[to] = new(uint256.Int).Add(contracts.Clone(v.ether[to]), bal)
	return nil
}

// SweepToken moves the whole token balance of from to to.
func (v *Vault) SweepToken(_ context.Context, token, from, to contracts.Address) error {
	if to.IsZero() {
		return fmt.Errorf("%w: sweep recipient", contracts.ErrInvalidAddress)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	holdings := v.tokens[token]
	if holdings == nil {
		holdings = make(map[contracts.Address]*uint256.Int)
		v.tokens[token] = holdings
	}
	bal := contracts.Clone(holdings[from])
	delete(holdings, from)
	holdings[to] = new(uint256.Int).Add(contracts.Clone(holdings[to]), bal)
	return nil
}
