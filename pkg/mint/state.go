package mint

import (
	"fmt"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Thresholds returns a copy of the tier thresholds.
func (p *Pipeline) Thresholds() Triple {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thresholds.clone()
}

// Limits returns a copy of the pool limits.
func (p *Pipeline) Limits() Triple {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limits.clone()
}

// Pools returns a copy of the remaining pool capacities.
func (p *Pipeline) Pools() Triple {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pools.clone()
}

func (p *Pipeline) Rules() [3]TierRule {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rules
}

// Paused reports whether minting is globally paused.
func (p *Pipeline) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Watermark is the time of the last InvalidateAllPendingMints.
func (p *Pipeline) Watermark() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watermark
}

// Len returns the number of operations ever requested.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ops)
}

// Operation returns a view of the operation at index.
func (p *Pipeline) Operation(index uint64) (Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= uint64(len(p.ops)) {
		return Operation{}, fmt.Errorf("%w: index %d", contracts.ErrMintNotFound, index)
	}
	return p.view(index), nil
}

// Operations returns views of every operation in index order.
func (p *Pipeline) Operations() []Operation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Operation, len(p.ops))
	for i := range p.ops {
		out[i] = p.view(uint64(i))
	}
	return out
}

func (p *Pipeline) view(index uint64) Operation {
	op := p.ops[index]
	return Operation{
		Index:         index,
		To:            op.to,
		Amount:        op.amount.Dec(),
		RequestedAt:   op.requestedAt,
		Ratifiers:     append([]contracts.Address(nil), op.ratifiers...),
		OwnerRatified: op.ownerRatified,
		Paused:        op.paused,
		Invalidated:   op.status == StatusPending && op.seq < p.invalidBefore,
		Status:        op.status,
	}
}

// State is the serialisable form of a pipeline. Amounts are decimal
// strings.
type State struct {
	Thresholds    [3]string           `json:"thresholds"`
	Limits        [3]string           `json:"limits"`
	Pools         [3]string           `json:"pools"`
	Rules         [3]TierRule         `json:"rules"`
	Operations    []OperationState    `json:"operations"`
	Paused        bool                `json:"paused"`
	NextSeq       uint64              `json:"next_seq"`
	InvalidBefore uint64              `json:"invalid_before"`
	Watermark     time.Time           `json:"watermark"`
	RefillVotes   []contracts.Address `json:"refill_votes,omitempty"`
}

// OperationState is one persisted operation.
type OperationState struct {
	To            contracts.Address   `json:"to"`
	Amount        string              `json:"amount"`
	RequestedAt   time.Time           `json:"requested_at"`
	Seq           uint64              `json:"seq"`
	Ratifiers     []contracts.Address `json:"ratifiers,omitempty"`
	OwnerRatified bool                `json:"owner_ratified,omitempty"`
	Paused        bool                `json:"paused,omitempty"`
	Status        Status              `json:"status"`
}

// State captures the pipeline for persistence.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := State{
		Thresholds:    decs(p.thresholds),
		Limits:        decs(p.limits),
		Pools:         decs(p.pools),
		Rules:         p.rules,
		Paused:        p.paused,
		NextSeq:       p.nextSeq,
		InvalidBefore: p.invalidBefore,
		Watermark:     p.watermark,
		RefillVotes:   append([]contracts.Address(nil), p.refillVotes...),
		Operations:    make([]OperationState, 0, len(p.ops)),
	}
	for _, op := range p.ops {
		st.Operations = append(st.Operations, OperationState{
			To:            op.to,
			Amount:        op.amount.Dec(),
			RequestedAt:   op.requestedAt,
			Seq:           op.seq,
			Ratifiers:     append([]contracts.Address(nil), op.ratifiers...),
			OwnerRatified: op.ownerRatified,
			Paused:        op.paused,
			Status:        op.status,
		})
	}
	return st
}

// Restore replaces the pipeline state with st after validating it.
func (p *Pipeline) Restore(st State) error {
	var thresholds, limits, pools Triple
	for i := range Tiers {
		var err error
		if thresholds[i], err = contracts.ParseAmount(st.Thresholds[i]); err != nil {
			return err
		}
		if limits[i], err = contracts.ParseAmount(st.Limits[i]); err != nil {
			return err
		}
		if pools[i], err = contracts.ParseAmount(st.Pools[i]); err != nil {
			return err
		}
		if pools[i].Gt(limits[i]) {
			return fmt.Errorf("%w: %s pool above its limit", contracts.ErrInvalidThresholds, Tier(i))
		}
		if err := validateRule(st.Rules[i]); err != nil {
			return err
		}
	}
	if err := ValidateThresholds(thresholds); err != nil {
		return err
	}
	if err := ValidateLimits(limits); err != nil {
		return err
	}

	ops := make([]*operation, 0, len(st.Operations))
	for i, os := range st.Operations {
		amount, err := contracts.ParseAmount(os.Amount)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if os.Seq >= st.NextSeq {
			return fmt.Errorf("%w: operation %d sequence %d beyond %d",
				contracts.ErrInvalidArgument, i, os.Seq, st.NextSeq)
		}
		switch os.Status {
		case StatusPending, StatusFinalized, StatusRevoked:
		default:
			return fmt.Errorf("%w: operation %d status %q", contracts.ErrInvalidArgument, i, os.Status)
		}
		ops = append(ops, &operation{
			to:            os.To,
			amount:        amount,
			requestedAt:   os.RequestedAt,
			seq:           os.Seq,
			ratifiers:     append([]contracts.Address(nil), os.Ratifiers...),
			ownerRatified: os.OwnerRatified,
			paused:        os.Paused,
			status:        os.Status,
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.thresholds, p.limits, p.pools = thresholds, limits, pools
	p.rules = st.Rules
	p.ops = ops
	p.paused = st.Paused
	p.nextSeq = st.NextSeq
	p.invalidBefore = st.InvalidBefore
	p.watermark = st.Watermark
	p.refillVotes = append([]contracts.Address(nil), st.RefillVotes...)
	return nil
}
