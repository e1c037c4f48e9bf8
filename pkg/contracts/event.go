package contracts

import (
	"context"
	"time"
)

// Event types emitted by the governance components.
const (
	EventActionProposed   = "action.proposed"
	EventActionCosigned   = "action.cosigned"
	EventActionExecuted   = "action.executed"
	EventActionFailed     = "action.failed"
	EventActionVetoed     = "action.vetoed"
	EventActionCleared    = "action.cleared"
	EventSignerReplaced   = "signer.replaced"
	EventMintRequested    = "mint.requested"
	EventMintInstant      = "mint.instant"
	EventMintRatified     = "mint.ratified"
	EventMintFinalized    = "mint.finalized"
	EventMintRevoked      = "mint.revoked"
	EventMintPaused       = "mint.paused"
	EventMintUnpaused     = "mint.unpaused"
	EventMintsPaused      = "mints.paused"
	EventMintsUnpaused    = "mints.unpaused"
	EventMintsInvalidated = "mints.invalidated"
	EventPoolRefilled     = "pool.refilled"
	EventLimitsChanged    = "limits.changed"
	EventRoleTransferred  = "role.transferred"
	EventOwnerPending     = "ownership.pending"
	EventOwnerClaimed     = "ownership.claimed"
	EventTokenAdmin       = "token.admin"
)

// Event is a committed state transition.
type Event struct {
	Type    string         `json:"type"`
	Actor   Address        `json:"actor"`
	Subject string         `json:"subject,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	At      time.Time      `json:"at"`
}

// EventSink receives committed events. Emit must not call back into the
// emitting component.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// Sinks fans an event out to every member.
type Sinks []EventSink

func (s Sinks) Emit(ctx context.Context, ev Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(ctx, ev)
		}
	}
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}
