package audit

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/ledger"
)

// LedgerLogger appends audit events to the governance ledger, so operator
// access is chained alongside the transitions it caused.
type LedgerLogger struct {
	ledger *ledger.Ledger
}

func NewLedgerLogger(l *ledger.Ledger) *LedgerLogger {
	return &LedgerLogger{ledger: l}
}

func (l *LedgerLogger) Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error {
	if l.ledger == nil {
		return fmt.Errorf("fail-closed: audit ledger not configured")
	}
	evt := newEvent(ctx, eventType, action, resource, metadata)
	data := map[string]any{
		"event_id":   evt.ID,
		"event_type": string(eventType),
		"actor_id":   evt.ActorID,
		"action":     action,
	}
	if evt.RequestID != "" {
		data["request_id"] = evt.RequestID
	}
	if len(metadata) > 0 {
		data["metadata"] = metadata
	}
	_, err := l.ledger.Append(contracts.Event{
		Type:    "audit." + string(eventType),
		Actor:   evt.Address,
		Subject: resource,
		Data:    data,
		At:      evt.Timestamp,
	})
	return err
}
