package mint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Tier is a mint class. Lower tiers need fewer approvals.
type Tier int

const (
	TierInstant Tier = iota
	TierRatified
	TierJumbo
)

// Tiers lists every tier from cheapest to most expensive.
var Tiers = [...]Tier{TierInstant, TierRatified, TierJumbo}

func (t Tier) String() string {
	switch t {
	case TierInstant:
		return "instant"
	case TierRatified:
		return "ratified"
	case TierJumbo:
		return "jumbo"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier accepts the lower-case tier name.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instant":
		return TierInstant, nil
	case "ratified":
		return TierRatified, nil
	case "jumbo":
		return TierJumbo, nil
	}
	return 0, fmt.Errorf("%w: unknown tier %q", contracts.ErrInvalidArgument, s)
}

// TierRule is satisfied when an operation has at least Ratifications
// distinct ratifier signatures and at least Delay has passed since it was
// requested.
type TierRule struct {
	Ratifications int           `json:"ratifications" yaml:"ratifications"`
	Delay         time.Duration `json:"delay" yaml:"delay"`
}

// DefaultRules: instant mints wait out a one hour time-lock, ratified mints
// need one ratifier and jumbo mints two.
func DefaultRules() [3]TierRule {
	return [3]TierRule{
		TierInstant:  {Ratifications: 0, Delay: time.Hour},
		TierRatified: {Ratifications: 1},
		TierJumbo:    {Ratifications: 2},
	}
}

// Triple holds one amount per tier.
type Triple [3]*uint256.Int

// NewTriple builds a triple from instant, ratified and jumbo values.
func NewTriple(instant, ratified, jumbo *uint256.Int) Triple {
	return Triple{contracts.Clone(instant), contracts.Clone(ratified), contracts.Clone(jumbo)}
}

func (t Triple) clone() Triple {
	return Triple{contracts.Clone(t[0]), contracts.Clone(t[1]), contracts.Clone(t[2])}
}

// ValidateThresholds requires instant < ratified < jumbo.
func ValidateThresholds(t Triple) error {
	for _, v := range t {
		if v == nil {
			return fmt.Errorf("%w: missing threshold", contracts.ErrInvalidThresholds)
		}
	}
	if !t[TierInstant].Lt(t[TierRatified]) || !t[TierRatified].Lt(t[TierJumbo]) {
		return fmt.Errorf("%w: thresholds must be strictly increasing (%s, %s, %s)",
			contracts.ErrInvalidThresholds, t[0].Dec(), t[1].Dec(), t[2].Dec())
	}
	return nil
}

// ValidateLimits requires instant <= ratified <= jumbo.
func ValidateLimits(t Triple) error {
	for _, v := range t {
		if v == nil {
			return fmt.Errorf("%w: missing limit", contracts.ErrInvalidThresholds)
		}
	}
	if t[TierInstant].Gt(t[TierRatified]) || t[TierRatified].Gt(t[TierJumbo]) {
		return fmt.Errorf("%w: limits must be non-decreasing (%s, %s, %s)",
			contracts.ErrInvalidThresholds, t[0].Dec(), t[1].Dec(), t[2].Dec())
	}
	return nil
}

// Authorizer answers the role questions the pipeline asks.
type Authorizer interface {
	IsOwner(a contracts.Address) bool
	IsMintKey(a contracts.Address) bool
	IsRatifier(a contracts.Address) bool
	IsPauser(a contracts.Address) bool
}

// Minter credits newly issued tokens.
type Minter interface {
	Mint(ctx context.Context, caller, to contracts.Address, amount *uint256.Int) error
}

// Status is the lifecycle state of a mint operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFinalized Status = "finalized"
	StatusRevoked   Status = "revoked"
)

// Operation is a read-only view of a mint request.
type Operation struct {
	Index         uint64              `json:"index"`
	To            contracts.Address   `json:"to"`
	Amount        string              `json:"amount"`
	RequestedAt   time.Time           `json:"requested_at"`
	Ratifiers     []contracts.Address `json:"ratifiers"`
	OwnerRatified bool                `json:"owner_ratified"`
	Paused        bool                `json:"paused"`
	Invalidated   bool                `json:"invalidated"`
	Status        Status              `json:"status"`
}

type operation struct {
	to            contracts.Address
	amount        *uint256.Int
	requestedAt   time.Time
	seq           uint64
	ratifiers     []contracts.Address
	ownerRatified bool
	paused        bool
	status        Status
}

func (o *operation) ratifiedBy(a contracts.Address) bool {
	for _, r := range o.ratifiers {
		if r == a {
			return true
		}
	}
	return false
}
