package node

import (
	"context"
	"errors"
	"time"
)

// Start runs the veto sweeper, when configured, and checkpoints every
// interval until Close or ctx is cancelled. Calling Start twice is a no-op.
func (n *Node) Start(ctx context.Context) {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	if n.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.done = make(chan struct{})
	if n.sweeper != nil {
		n.sweeper.Start(ctx)
	}
	go n.run(ctx, n.done)
}

func (n *Node) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.Checkpoint(ctx); err != nil {
				n.logger.WarnContext(ctx, "periodic checkpoint failed", "error", err)
			}
		}
	}
}

// Close stops background work, takes a final checkpoint and closes the
// store.
func (n *Node) Close(ctx context.Context) error {
	n.runMu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.runMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	if n.sweeper != nil {
		n.sweeper.Stop()
	}

	_, err := n.Checkpoint(ctx)
	if n.store != nil {
		err = errors.Join(err, n.store.Close())
	}
	return err
}
