package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/mintgov/pkg/audit"
	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
	"github.com/Mindburn-Labs/mintgov/pkg/node"
)

const demoDeployment = `
version: "1.0.0"
engine:
  address: multisig
  signers: [owner-1, owner-2, owner-3]
  threshold: 2
controller:
  address: controller
token:
  address: tusd
  registry: registry
  name: Demo USD
  symbol: DUSD
mint:
  thresholds: {instant: "10", ratified: "100", jumbo: "1000"}
  limits: {instant: "30", ratified: "300", jumbo: "3000"}
  fill_pools: true
roles:
  mint_key: mint-key
  pause_key: pause-key
  ratifiers: [ratifier-1, ratifier-2]
`

type demoStep struct {
	name string
	run  func(context.Context) (string, error)
}

// runDemo drives an in-memory node through a short governance scenario.
func runDemo(_ []string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	d, err := config.ParseDeployment([]byte(demoDeployment))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	n, err := node.New(ctx, d,
		node.WithAuditLogger(audit.NewLoggerWithWriter(io.Discard)),
		node.WithLogger(newLogger(stderr, "WARN", "text")),
	)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	const (
		owner1    contracts.Address = "owner-1"
		owner2    contracts.Address = "owner-2"
		owner3    contracts.Address = "owner-3"
		mintKey   contracts.Address = "mint-key"
		ratifier  contracts.Address = "ratifier-1"
		recipient contracts.Address = "alice"
	)
	engine, mints, tok := n.Engine(), n.Controller().Mints(), n.Token()

	var index uint64
	steps := []demoStep{
		{"instant mint of 5 tokens", func(ctx context.Context) (string, error) {
			return "minted", mints.InstantMint(ctx, mintKey, recipient, contracts.Tokens(5))
		}},
		{"request 50 tokens", func(ctx context.Context) (string, error) {
			var err error
			index, err = mints.RequestMint(ctx, mintKey, recipient, contracts.Tokens(50))
			return fmt.Sprintf("operation %d pending", index), err
		}},
		{"ratify the request", func(ctx context.Context) (string, error) {
			done, err := mints.RatifyMint(ctx, ratifier, index, recipient, contracts.Tokens(50))
			return fmt.Sprintf("finalized=%t", done), err
		}},
		{"owner-1 proposes pausing the token", func(ctx context.Context) (string, error) {
			out, err := engine.PauseToken(ctx, owner1)
			return string(out), err
		}},
		{"owner-2 cosigns", func(ctx context.Context) (string, error) {
			out, err := engine.PauseToken(ctx, owner2)
			if err == nil && out != multisig.OutcomeExecuted {
				err = fmt.Errorf("pause not executed: %s", out)
			}
			return fmt.Sprintf("%s, token paused=%t", out, tok.Paused()), err
		}},
		{"quorum unpauses the token", func(ctx context.Context) (string, error) {
			if _, err := engine.UnpauseToken(ctx, owner2); err != nil {
				return "", err
			}
			out, err := engine.UnpauseToken(ctx, owner3)
			return fmt.Sprintf("%s, token paused=%t", out, tok.Paused()), err
		}},
		{"owner-1 proposes pausing mints", func(ctx context.Context) (string, error) {
			out, err := engine.PauseMints(ctx, owner1)
			return string(out), err
		}},
		{"owner-3 vetoes", func(ctx context.Context) (string, error) {
			out, err := engine.Veto(ctx, owner3)
			return fmt.Sprintf("%s, mints paused=%t", out, mints.Paused()), err
		}},
	}

	for i, s := range steps {
		res, err := s.run(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "step %d (%s) failed: %v\n", i+1, s.name, err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "%d. %-36s %s\n", i+1, s.name, res)
	}

	if _, ok := engine.Pending(); ok {
		_, _ = fmt.Fprintln(stderr, "unexpected pending action after veto")
		return 1
	}
	l := n.Ledger()
	if err := l.Verify(); err != nil {
		_, _ = fmt.Fprintf(stderr, "ledger verification failed: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "\n%s balance: %s base units\n", recipient, tok.BalanceOf(recipient).Dec())
	_, _ = fmt.Fprintf(stdout, "total supply: %s base units\n", tok.TotalSupply().Dec())
	_, _ = fmt.Fprintf(stdout, "ledger: %d entries, head %s\n", l.Length(), l.Head())
	counts := map[string]int{}
	var order []string
	for _, e := range l.Since(0) {
		if counts[e.Type] == 0 {
			order = append(order, e.Type)
		}
		counts[e.Type]++
	}
	for _, typ := range order {
		_, _ = fmt.Fprintf(stdout, "  %-28s %d\n", typ, counts[typ])
	}
	return 0
}
