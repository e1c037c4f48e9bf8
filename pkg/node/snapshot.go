package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/mintgov/pkg/archive"
	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/controller"
	"github.com/Mindburn-Labs/mintgov/pkg/ledger"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
	"github.com/Mindburn-Labs/mintgov/pkg/store"
	"github.com/Mindburn-Labs/mintgov/pkg/token"
)

// State is the persisted image of a node.
type State struct {
	EngineAddress     contracts.Address              `json:"engine_address"`
	ControllerAddress contracts.Address              `json:"controller_address"`
	Engine            multisig.State                 `json:"engine"`
	Controller        controller.State               `json:"controller"`
	Token             token.LedgerState              `json:"token"`
	Attributes        map[contracts.Address][]string `json:"attributes,omitempty"`
	Vault             token.VaultState               `json:"vault"`
	Ledger            []ledger.Entry                 `json:"ledger"`
	Archive           *archive.Cursor                `json:"archive,omitempty"`
}

// state captures the node. Callers must hold n.mu.
func (n *Node) state() State {
	st := State{
		EngineAddress:     n.engine.Address(),
		ControllerAddress: n.controller.Address(),
		Engine:            n.engine.State(),
		Controller:        n.controller.State(),
		Token:             n.token.State(),
		Attributes:        n.attrs.State(),
		Vault:             n.vault.State(),
		Ledger:            n.ledger.Since(0),
	}
	if n.archiver != nil {
		c := n.archiver.Cursor()
		st.Archive = &c
	}
	return st
}

// Checkpoint seals new ledger entries into the archive, when one is
// configured, and saves a snapshot. Mutations wait until it returns.
func (n *Node) Checkpoint(ctx context.Context) (store.Snapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.archiver != nil {
		if _, _, err := n.archiver.Seal(ctx); err != nil && !errors.Is(err, archive.ErrNothingToSeal) {
			return store.Snapshot{}, err
		}
	}
	if n.store == nil {
		return store.Snapshot{}, nil
	}

	raw, err := json.Marshal(n.state())
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("encode node state: %w", err)
	}
	saved, err := n.store.Save(ctx, store.Snapshot{
		Revision:   n.revision,
		Format:     config.FormatVersion,
		State:      raw,
		LedgerHead: n.ledger.Head(),
	})
	if err != nil {
		n.logger.WarnContext(ctx, "checkpoint failed", "revision", n.revision, "error", err)
		return store.Snapshot{}, err
	}
	n.revision = saved.Revision
	n.logger.InfoContext(ctx, "checkpoint saved",
		"revision", saved.Revision, "ledger_head", saved.LedgerHead, "ledger_length", n.ledger.Length())
	return saved, nil
}

// restore loads snap into freshly assembled components.
func (n *Node) restore(snap store.Snapshot) error {
	if err := config.CheckFormat(snap.Format); err != nil {
		return err
	}
	var st State
	if err := json.Unmarshal(snap.State, &st); err != nil {
		return fmt.Errorf("decode node state: %w", err)
	}
	if st.EngineAddress != n.deployment.Engine.Address || st.ControllerAddress != n.deployment.Controller.Address {
		return fmt.Errorf("%w: snapshot is for engine %s and controller %s",
			ErrDeploymentMismatch, st.EngineAddress, st.ControllerAddress)
	}

	if err := n.ledger.Restore(st.Ledger); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	if head := n.ledger.Head(); head != snap.LedgerHead {
		return fmt.Errorf("%w: snapshot head %s, restored head %s", ledger.ErrChainBroken, snap.LedgerHead, head)
	}
	if err := n.token.Restore(st.Token); err != nil {
		return fmt.Errorf("restore token: %w", err)
	}
	n.attrs.Restore(st.Attributes)
	if err := n.vault.Restore(st.Vault); err != nil {
		return fmt.Errorf("restore vault: %w", err)
	}
	if err := n.controller.Restore(st.Controller); err != nil {
		return fmt.Errorf("restore controller: %w", err)
	}
	if err := n.engine.Restore(st.Engine); err != nil {
		return fmt.Errorf("restore engine: %w", err)
	}
	if n.archiver != nil && st.Archive != nil {
		n.archiver.SetCursor(*st.Archive)
	}

	n.revision = snap.Revision
	n.logger.Info("state restored",
		"revision", snap.Revision, "ledger_length", len(st.Ledger), "saved_at", snap.SavedAt)
	return nil
}
