package multisig

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/custody"
)

// executeSelf runs engine-targeted actions. e.mu is not held; e.executing
// keeps every other mutating entry point out.
func (e *Engine) executeSelf(ctx context.Context, p Payload) error {
	switch op := p.(type) {
	case UpdateOwner:
		e.mu.Lock()
		err := e.signers.ReplaceMember(op.Old, op.New)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		e.logger.InfoContext(ctx, "signer replaced", "old", op.Old, "new", op.New)
		e.sink.Emit(ctx, contracts.Event{
			Type:    contracts.EventSignerReplaced,
			Actor:   e.self,
			Subject: string(op.New),
			Data:    map[string]any{"old": string(op.Old), "new": string(op.New)},
			At:      e.clock(),
		})
		return nil

	case SetController:
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.targets[op.Controller]; !ok {
			return fmt.Errorf("%w: controller %s is not registered", contracts.ErrInvalidArgument, op.Controller)
		}
		e.controller = op.Controller
		return nil

	case ClaimContract:
		c, err := e.ownable(op.Contract)
		if err != nil {
			return err
		}
		return c.ClaimOwnership(ctx, e.self)

	case ReclaimContract:
		c, err := e.ownable(op.Contract)
		if err != nil {
			return err
		}
		return c.TransferOwnership(ctx, e.self, op.NewOwner)

	case ReclaimEther:
		return custody.NewReclaimer(e.self, e.vault).ReclaimEther(ctx, op.To)

	case ReclaimToken:
		return custody.NewReclaimer(e.self, e.vault).ReclaimToken(ctx, op.Token, op.To)
	}
	return fmt.Errorf("%w: %s is not an engine operation", contracts.ErrInvalidArgument, p.Kind())
}

func (e *Engine) ownable(addr contracts.Address) (contracts.Ownable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.owned[addr]
	if !ok {
		return nil, fmt.Errorf("%w: unknown contract %s", contracts.ErrInvalidArgument, addr)
	}
	return c, nil
}
