package policy

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
)

// Engine is the part of the authorization engine the sweeper uses.
type Engine interface {
	Pending() (multisig.PendingAction, bool)
	Veto(ctx context.Context, signer contracts.Address) (multisig.Outcome, error)
}

// Sweeper periodically checks the pending action against a policy and
// vetoes it as signer when a rule matches.
type Sweeper struct {
	policy   *Policy
	engine   Engine
	signer   contracts.Address
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Sweeper)

func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) { s.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func NewSweeper(p *Policy, engine Engine, signer contracts.Address, interval time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		policy:   p,
		engine:   engine,
		signer:   signer,
		interval: interval,
		clock:    time.Now,
		logger:   slog.Default().With("component", "policy"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep evaluates the pending action once and reports whether it vetoed.
// The sweeper never vetoes an action its signer approved.
func (s *Sweeper) Sweep(ctx context.Context) (bool, error) {
	a, ok := s.engine.Pending()
	if !ok {
		return false, nil
	}
	if slices.Contains(a.Approvals, s.signer) || slices.Contains(a.Vetoes, s.signer) {
		return false, nil
	}
	rule, matched, err := s.policy.Match(a, s.clock())
	if err != nil {
		return false, err
	}
	if !matched {
		return false, nil
	}

	outcome, err := s.engine.Veto(ctx, s.signer)
	switch {
	case errors.Is(err, contracts.ErrNoActionPending),
		errors.Is(err, contracts.ErrAlreadyVetoed),
		errors.Is(err, contracts.ErrAlreadySigned):
		// The action changed between the read and the veto.
		return false, nil
	case err != nil:
		return false, err
	}
	s.logger.InfoContext(ctx, "policy vetoed pending action",
		"rule", rule, "kind", a.Kind, "digest", a.Digest, "outcome", outcome)
	return true, nil
}

// Start runs Sweep every interval until Stop or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.WarnContext(ctx, "policy sweep failed", "error", err)
			}
		}
	}
}

// Stop halts the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
