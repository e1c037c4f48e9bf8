// Package quorum tracks the fixed-size signer set and per-action signature
// tallies. It has no domain knowledge and no locking; the owning engine
// serialises access.
package quorum

import (
	"fmt"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Set is the signer roster. Membership lookups are O(1); the roster keeps
// insertion order for enumeration and in-place replacement.
type Set struct {
	members map[contracts.Address]struct{}
	roster  []contracts.Address
}

// New builds a set from distinct, non-zero signers.
func New(signers []contracts.Address) (*Set, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("%w: empty signer set", contracts.ErrInvalidArgument)
	}
	s := &Set{
		members: make(map[contracts.Address]struct{}, len(signers)),
		roster:  make([]contracts.Address, 0, len(signers)),
	}
	for _, a := range signers {
		if a.IsZero() {
			return nil, fmt.Errorf("%w: zero signer", contracts.ErrInvalidAddress)
		}
		if _, dup := s.members[a]; dup {
			return nil, fmt.Errorf("%w: duplicate signer %s", contracts.ErrInvalidArgument, a)
		}
		s.members[a] = struct{}{}
		s.roster = append(s.roster, a)
	}
	return s, nil
}

// IsMember reports whether a is a current signer.
func (s *Set) IsMember(a contracts.Address) bool {
	_, ok := s.members[a]
	return ok
}

// Roster returns a copy of the signers in insertion order.
func (s *Set) Roster() []contracts.Address {
	out := make([]contracts.Address, len(s.roster))
	copy(out, s.roster)
	return out
}

// Size is the number of signers.
func (s *Set) Size() int { return len(s.roster) }

// ReplaceMember swaps old for replacement in old's roster slot.
func (s *Set) ReplaceMember(old, replacement contracts.Address) error {
	if replacement.IsZero() {
		return fmt.Errorf("%w: zero replacement", contracts.ErrInvalidAddress)
	}
	if !s.IsMember(old) {
		return fmt.Errorf("%w: %s", contracts.ErrNotAMember, old)
	}
	if s.IsMember(replacement) {
		return fmt.Errorf("%w: %s is already a signer", contracts.ErrNotAMember, replacement)
	}
	for i, a := range s.roster {
		if a == old {
			s.roster[i] = replacement
			break
		}
	}
	delete(s.members, old)
	s.members[replacement] = struct{}{}
	return nil
}

// ValidateThreshold checks that k-of-n is satisfiable.
func ValidateThreshold(k, n int) error {
	if k < 1 || k > n {
		return fmt.Errorf("%w: threshold %d of %d signers", contracts.ErrInvalidArgument, k, n)
	}
	return nil
}
