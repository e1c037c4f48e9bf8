// Package policy turns operator-written CEL expressions into an explicit
// veto policy for the pending action. Nothing in the engine expires an
// action on its own; a sweeper running as one of the signers vetoes
// whatever a rule matches.
package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
)

// costLimit bounds the work a single rule evaluation may do.
const costLimit = 10_000

// Rule is one named veto condition.
type Rule struct {
	Name string
	Expr string
}

type compiled struct {
	name string
	prg  cel.Program
}

// Policy is a compiled, ordered rule list. The first matching rule wins.
type Policy struct {
	rules []compiled
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("kind", cel.StringType),
		cel.Variable("target", cel.StringType),
		cel.Variable("selector", cel.StringType),
		cel.Variable("args", cel.DynType),
		cel.Variable("approvals", cel.IntType),
		cel.Variable("vetoes", cel.IntType),
		cel.Variable("approvers", cel.ListType(cel.StringType)),
		cel.Variable("created", cel.TimestampType),
		cel.Variable("age", cel.DurationType),
	)
}

// Compile type-checks every rule. Rules must evaluate to bool.
func Compile(rules []Rule) (*Policy, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	p := &Policy{rules: make([]compiled, 0, len(rules))}
	for _, r := range rules {
		ast, iss := env.Compile(r.Expr)
		if iss.Err() != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, iss.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %q: must evaluate to bool, got %s", r.Name, ast.OutputType())
		}
		prg, err := env.Program(ast, cel.CostLimit(costLimit))
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		p.rules = append(p.rules, compiled{name: r.Name, prg: prg})
	}
	return p, nil
}

// Match returns the name of the first rule that matches a, if any.
func (p *Policy) Match(a multisig.PendingAction, now time.Time) (string, bool, error) {
	input, err := activation(a, now)
	if err != nil {
		return "", false, err
	}
	for _, r := range p.rules {
		out, _, err := r.prg.Eval(input)
		if err != nil {
			return "", false, fmt.Errorf("rule %q: %w", r.name, err)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return "", false, fmt.Errorf("rule %q: non-bool result %T", r.name, out.Value())
		}
		if matched {
			return r.name, true, nil
		}
	}
	return "", false, nil
}

func activation(a multisig.PendingAction, now time.Time) (map[string]any, error) {
	var args any
	if len(a.Args) > 0 {
		if err := json.Unmarshal(a.Args, &args); err != nil {
			return nil, fmt.Errorf("decode action args: %w", err)
		}
	}
	return map[string]any{
		"kind":      string(a.Kind),
		"target":    string(a.Target),
		"selector":  a.Selector,
		"args":      args,
		"approvals": int64(len(a.Approvals)),
		"vetoes":    int64(len(a.Vetoes)),
		"approvers": addresses(a.Approvals),
		"created":   a.CreatedAt,
		"age":       now.Sub(a.CreatedAt),
	}, nil
}

func addresses(in []contracts.Address) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = string(a)
	}
	return out
}
