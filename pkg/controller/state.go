package controller

import (
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/roles"
)

// State is the persisted form of a controller and everything it hosts.
type State struct {
	Ownership custody.Ownership `json:"ownership"`
	Token     contracts.Address `json:"token,omitempty"`
	Registry  contracts.Address `json:"registry,omitempty"`
	FastPause contracts.Address `json:"fast_pause,omitempty"`
	Roles     roles.State       `json:"roles"`
	Mint      mint.State        `json:"mint"`
}

func (c *Controller) State() State {
	c.mu.RLock()
	st := State{
		Token:     c.token,
		Registry:  c.registry,
		FastPause: c.fastPause,
	}
	c.mu.RUnlock()
	st.Ownership = c.Ownership()
	st.Roles = c.roles.State()
	st.Mint = c.mints.State()
	return st
}

// Restore loads st. Token and registry addresses must resolve in the
// directory.
func (c *Controller) Restore(st State) error {
	if !st.Token.IsZero() {
		if _, err := c.children.Token(st.Token); err != nil {
			return err
		}
	}
	var reg contracts.Registry
	if !st.Registry.IsZero() {
		r, err := c.children.Registry(st.Registry)
		if err != nil {
			return err
		}
		reg = r
	}
	if err := c.mints.Restore(st.Mint); err != nil {
		return err
	}

	c.mu.Lock()
	c.token, c.registry, c.fastPause = st.Token, st.Registry, st.FastPause
	c.mu.Unlock()
	c.RestoreOwnership(st.Ownership)
	c.roles.Restore(st.Roles)
	c.roles.SetAttributes(reg)
	return nil
}
