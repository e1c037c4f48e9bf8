package token

import (
	"sort"
	"sync"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Attributes is an in-memory compliance registry.
type Attributes struct {
	mu    sync.RWMutex
	attrs map[contracts.Address]map[string]bool
}

func NewAttributes() *Attributes {
	return &Attributes{attrs: make(map[contracts.Address]map[string]bool)}
}

func (a *Attributes) HasAttribute(who contracts.Address, attribute string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.attrs[who][attribute]
}

// Set grants or revokes attribute for who.
func (a *Attributes) Set(who contracts.Address, attribute string, on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !on {
		delete(a.attrs[who], attribute)
		return
	}
	if a.attrs[who] == nil {
		a.attrs[who] = make(map[string]bool)
	}
	a.attrs[who][attribute] = true
}

// Holders lists identities carrying attribute, sorted.
func (a *Attributes) Holders(attribute string) []contracts.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []contracts.Address
	for who, set := range a.attrs {
		if set[attribute] {
			out = append(out, who)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
