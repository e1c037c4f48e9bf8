package quorum

import "github.com/Mindburn-Labs/mintgov/pkg/contracts"

// Tally records exclusive approvals and vetoes for one action. A signer
// appears at most once across both lists.
type Tally struct {
	approvals []contracts.Address
	vetoes    []contracts.Address
}

// Approve records a as approving. It reports false if a already took part.
func (t *Tally) Approve(a contracts.Address) bool {
	if t.Participated(a) {
		return false
	}
	t.approvals = append(t.approvals, a)
	return true
}

// Veto records a as vetoing. It reports false if a already took part.
func (t *Tally) Veto(a contracts.Address) bool {
	if t.Participated(a) {
		return false
	}
	t.vetoes = append(t.vetoes, a)
	return true
}

// Unapprove drops a's approval; used to roll back a failed execution.
func (t *Tally) Unapprove(a contracts.Address) {
	for i, x := range t.approvals {
		if x == a {
			t.approvals = append(t.approvals[:i], t.approvals[i+1:]...)
			return
		}
	}
}

func (t *Tally) HasApproved(a contracts.Address) bool { return contains(t.approvals, a) }

func (t *Tally) HasVetoed(a contracts.Address) bool { return contains(t.vetoes, a) }

func (t *Tally) Participated(a contracts.Address) bool {
	return t.HasApproved(a) || t.HasVetoed(a)
}

func (t *Tally) Approvals() int { return len(t.approvals) }

func (t *Tally) Vetoes() int { return len(t.vetoes) }

// Approvers returns a copy of the approving signers in signing order.
func (t *Tally) Approvers() []contracts.Address {
	return append([]contracts.Address(nil), t.approvals...)
}

// Vetoers returns a copy of the vetoing signers in veto order.
func (t *Tally) Vetoers() []contracts.Address {
	return append([]contracts.Address(nil), t.vetoes...)
}

// Restore rebuilds a tally from persisted lists.
func Restore(approvals, vetoes []contracts.Address) *Tally {
	return &Tally{
		approvals: append([]contracts.Address(nil), approvals...),
		vetoes:    append([]contracts.Address(nil), vetoes...),
	}
}

func contains(list []contracts.Address, a contracts.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
