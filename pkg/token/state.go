package token

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
)

// LedgerState is the persisted form of a Ledger. Amounts are decimal
// strings.
type LedgerState struct {
	Ownership   custody.Ownership            `json:"ownership"`
	Name        string                       `json:"name"`
	Symbol      string                       `json:"symbol"`
	Balances    map[contracts.Address]string `json:"balances,omitempty"`
	Paused      bool                         `json:"paused,omitempty"`
	Fees        contracts.StakingFees        `json:"fees"`
	Staker      contracts.Address            `json:"staker,omitempty"`
	BurnMin     string                       `json:"burn_min"`
	BurnMax     string                       `json:"burn_max"`
	Registry    contracts.Address            `json:"registry,omitempty"`
	GlobalPause contracts.Address            `json:"global_pause,omitempty"`
}

func (l *Ledger) State() LedgerState {
	l.mu.Lock()
	st := LedgerState{
		Name:        l.name,
		Symbol:      l.symbol,
		Balances:    make(map[contracts.Address]string, len(l.balances)),
		Paused:      l.paused,
		Fees:        l.fees,
		Staker:      l.staker,
		BurnMin:     l.burnMin.Dec(),
		BurnMax:     l.burnMax.Dec(),
		Registry:    l.registry,
		GlobalPause: l.globalPause,
	}
	for who, bal := range l.balances {
		st.Balances[who] = bal.Dec()
	}
	l.mu.Unlock()
	st.Ownership = l.Ownership()
	return st
}

// Restore replaces the ledger's contents with st. The total supply is
// recomputed from the balances.
func (l *Ledger) Restore(st LedgerState) error {
	balances := make(map[contracts.Address]*uint256.Int, len(st.Balances))
	supply := new(uint256.Int)
	for who, s := range st.Balances {
		v, err := uint256.FromDecimal(s)
		if err != nil {
			return fmt.Errorf("%w: balance of %s: %v", contracts.ErrInvalidAmount, who, err)
		}
		var overflow bool
		if supply, overflow = new(uint256.Int).AddOverflow(supply, v); overflow {
			return fmt.Errorf("%w: supply overflow", contracts.ErrInvalidAmount)
		}
		balances[who] = v
	}
	burnMin, err := decimalOrZero(st.BurnMin)
	if err != nil {
		return err
	}
	burnMax, err := decimalOrZero(st.BurnMax)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.name, l.symbol = st.Name, st.Symbol
	l.balances, l.supply = balances, supply
	l.paused = st.Paused
	l.fees = st.Fees
	l.staker = st.Staker
	l.burnMin, l.burnMax = burnMin, burnMax
	l.registry, l.globalPause = st.Registry, st.GlobalPause
	l.mu.Unlock()
	l.RestoreOwnership(st.Ownership)
	return nil
}

func decimalOrZero(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", contracts.ErrInvalidAmount, s)
	}
	return v, nil
}

// State lists every holder's attributes, sorted by attribute name.
func (a *Attributes) State() map[contracts.Address][]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[contracts.Address][]string, len(a.attrs))
	for who, set := range a.attrs {
		for attr, on := range set {
			if on {
				out[who] = append(out[who], attr)
			}
		}
	}
	for who := range out {
		sort.Strings(out[who])
	}
	return out
}

func (a *Attributes) Restore(st map[contracts.Address][]string) {
	attrs := make(map[contracts.Address]map[string]bool, len(st))
	for who, list := range st {
		set := make(map[string]bool, len(list))
		for _, attr := range list {
			set[attr] = true
		}
		attrs[who] = set
	}
	a.mu.Lock()
	a.attrs = attrs
	a.mu.Unlock()
}

// VaultState is the persisted form of a Vault. Amounts are decimal strings.
type VaultState struct {
	Ether  map[contracts.Address]string                       `json:"ether,omitempty"`
	Tokens map[contracts.Address]map[contracts.Address]string `json:"tokens,omitempty"`
}

func (v *Vault) State() VaultState {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := VaultState{
		Ether:  make(map[contracts.Address]string, len(v.ether)),
		Tokens: make(map[contracts.Address]map[contracts.Address]string, len(v.tokens)),
	}
	for who, bal := range v.ether {
		st.Ether[who] = bal.Dec()
	}
	for tok, holdings := range v.tokens {
		m := make(map[contracts.Address]string, len(holdings))
		for who, bal := range holdings {
			m[who] = bal.Dec()
		}
		st.Tokens[tok] = m
	}
	return st
}

func (v *Vault) Restore(st VaultState) error {
	ether := make(map[contracts.Address]*uint256.Int, len(st.Ether))
	for who, s := range st.Ether {
		bal, err := decimalOrZero(s)
		if err != nil {
			return err
		}
		ether[who] = bal
	}
	tokens := make(map[contracts.Address]map[contracts.Address]*uint256.Int, len(st.Tokens))
	for tok, holdings := range st.Tokens {
		m := make(map[contracts.Address]*uint256.Int, len(holdings))
		for who, s := range holdings {
			bal, err := decimalOrZero(s)
			if err != nil {
				return err
			}
			m[who] = bal
		}
		tokens[tok] = m
	}
	v.mu.Lock()
	v.ether, v.tokens = ether, tokens
	v.mu.Unlock()
	return nil
}
