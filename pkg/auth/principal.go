package auth

import (
	"slices"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Roles a token may carry. Roles only gate the HTTP surface; the engine and
// the pipeline still check the address against their own registries.
const (
	RoleSigner   = "signer"
	RoleMintKey  = "mint-key"
	RoleRatifier = "ratifier"
	RolePauser   = "pauser"
	RoleObserver = "observer"
)

// Principal is the authenticated party behind a request.
type Principal interface {
	GetID() string
	GetAddress() contracts.Address
	GetRoles() []string
	HasRole(role string) bool
}

// Operator is a key holder identified by a bearer token.
type Operator struct {
	ID      string
	Address contracts.Address
	Roles   []string
}

func (o *Operator) GetID() string {
	return o.ID
}

func (o *Operator) GetAddress() contracts.Address {
	return o.Address
}

func (o *Operator) GetRoles() []string {
	return o.Roles
}

func (o *Operator) HasRole(role string) bool {
	return slices.Contains(o.Roles, role)
}
