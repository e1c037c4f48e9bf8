package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/holiman/uint256"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
)

// FormatVersion is the version written into deployments and snapshots.
const FormatVersion = "1.0.0"

// formatConstraint accepts every format this build can read.
const formatConstraint = ">= 1.0.0, < 2.0.0"

const schemaURL = "https://mintgov.schemas.local/deployment.schema.json"

//go:embed schema/deployment.schema.json
var deploymentSchema string

// ErrIncompatibleFormat is returned for deployments and snapshots written
// by an unsupported format version.
var ErrIncompatibleFormat = errors.New("incompatible format version")

// Deployment describes one governed token: its signer quorum, controller,
// mint tiers and role holders. Amounts are whole tokens.
type Deployment struct {
	Version    string         `yaml:"version" json:"version"`
	Engine     EngineSpec     `yaml:"engine" json:"engine"`
	Controller ControllerSpec `yaml:"controller" json:"controller"`
	Token      TokenSpec      `yaml:"token,omitempty" json:"token,omitempty"`
	Mint       MintSpec       `yaml:"mint" json:"mint"`
	Roles      RolesSpec      `yaml:"roles,omitempty" json:"roles,omitempty"`
	Policy     *PolicySpec    `yaml:"policy,omitempty" json:"policy,omitempty"`
}

type EngineSpec struct {
	Address       contracts.Address   `yaml:"address" json:"address"`
	Signers       []contracts.Address `yaml:"signers" json:"signers"`
	Threshold     int                 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	VetoThreshold int                 `yaml:"veto_threshold,omitempty" json:"veto_threshold,omitempty"`
}

type ControllerSpec struct {
	Address contracts.Address `yaml:"address" json:"address"`
}

// TokenSpec names the token and compliance registry the controller is wired
// to at start-up.
type TokenSpec struct {
	Address  contracts.Address `yaml:"address,omitempty" json:"address,omitempty"`
	Registry contracts.Address `yaml:"registry,omitempty" json:"registry,omitempty"`
	Name     string            `yaml:"name,omitempty" json:"name,omitempty"`
	Symbol   string            `yaml:"symbol,omitempty" json:"symbol,omitempty"`
}

// TripleSpec holds one whole-token amount per tier.
type TripleSpec struct {
	Instant  string `yaml:"instant" json:"instant"`
	Ratified string `yaml:"ratified" json:"ratified"`
	Jumbo    string `yaml:"jumbo" json:"jumbo"`
}

type RuleSpec struct {
	Ratifications int    `yaml:"ratifications" json:"ratifications"`
	Delay         string `yaml:"delay,omitempty" json:"delay,omitempty"`
}

type MintSpec struct {
	Thresholds TripleSpec          `yaml:"thresholds" json:"thresholds"`
	Limits     TripleSpec          `yaml:"limits" json:"limits"`
	FillPools  bool                `yaml:"fill_pools,omitempty" json:"fill_pools,omitempty"`
	Rules      map[string]RuleSpec `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// RolesSpec lists the initial key holders. Ratifiers and checkers are
// granted through the compliance registry.
type RolesSpec struct {
	MintKey   contracts.Address   `yaml:"mint_key,omitempty" json:"mint_key,omitempty"`
	PauseKey  contracts.Address   `yaml:"pause_key,omitempty" json:"pause_key,omitempty"`
	FastPause contracts.Address   `yaml:"fast_pause,omitempty" json:"fast_pause,omitempty"`
	Ratifiers []contracts.Address `yaml:"ratifiers,omitempty" json:"ratifiers,omitempty"`
	Checkers  []contracts.Address `yaml:"checkers,omitempty" json:"checkers,omitempty"`
}

// PolicySpec configures the veto sweeper.
type PolicySpec struct {
	Signer   contracts.Address `yaml:"signer" json:"signer"`
	Interval string            `yaml:"interval,omitempty" json:"interval,omitempty"`
	Rules    []PolicyRule      `yaml:"rules" json:"rules"`
}

type PolicyRule struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// LoadDeployment reads and validates the deployment file at path.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load deployment: %w", err)
	}
	d, err := ParseDeployment(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseDeployment validates data against the deployment schema, then
// decodes and checks it.
func ParseDeployment(data []byte) (*Deployment, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse deployment: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse deployment: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var inst any
	if err := dec.Decode(&inst); err != nil {
		return nil, fmt.Errorf("parse deployment: %w", err)
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("deployment schema validation failed: %w", err)
	}

	var d Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deployment: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader([]byte(deploymentSchema))); err != nil {
		return nil, fmt.Errorf("deployment schema load failed: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("deployment schema compile failed: %w", err)
	}
	return schema, nil
}

// CheckFormat reports whether version can be read by this build.
func CheckFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleFormat, version, err)
	}
	c, err := semver.NewConstraint(formatConstraint)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatibleFormat, v, formatConstraint)
	}
	return nil
}

// Validate checks the cross-field rules the schema cannot express.
func (d *Deployment) Validate() error {
	if err := CheckFormat(d.Version); err != nil {
		return err
	}
	seen := make(map[contracts.Address]bool, len(d.Engine.Signers))
	for i, s := range d.Engine.Signers {
		a, err := contracts.ParseAddress(string(s))
		if err != nil {
			return fmt.Errorf("engine.signers[%d]: %w", i, err)
		}
		if seen[a] {
			return fmt.Errorf("engine.signers[%d]: duplicate signer %s", i, a)
		}
		seen[a] = true
		d.Engine.Signers[i] = a
	}
	n := len(d.Engine.Signers)
	if d.Engine.Threshold > n || d.Engine.VetoThreshold > n {
		return fmt.Errorf("engine: thresholds exceed %d signers", n)
	}
	if d.Engine.Address == d.Controller.Address {
		return fmt.Errorf("engine and controller must have distinct addresses")
	}
	if _, err := d.MintConfig(); err != nil {
		return err
	}
	if d.Policy != nil {
		if !seen[d.Policy.Signer] {
			return fmt.Errorf("policy.signer %s is not an engine signer", d.Policy.Signer)
		}
		if _, err := d.Policy.SweepInterval(); err != nil {
			return err
		}
	}
	return nil
}

// EngineConfig returns the engine settings. Zero thresholds fall back to
// the engine defaults.
func (d *Deployment) EngineConfig() multisig.Config {
	return multisig.Config{
		Self:          d.Engine.Address,
		Threshold:     d.Engine.Threshold,
		VetoThreshold: d.Engine.VetoThreshold,
	}
}

// MintConfig converts the mint section to pipeline settings in base units.
func (d *Deployment) MintConfig() (mint.Config, error) {
	thresholds, err := d.Mint.Thresholds.triple("mint.thresholds")
	if err != nil {
		return mint.Config{}, err
	}
	limits, err := d.Mint.Limits.triple("mint.limits")
	if err != nil {
		return mint.Config{}, err
	}
	if err := mint.ValidateThresholds(thresholds); err != nil {
		return mint.Config{}, err
	}
	if err := mint.ValidateLimits(limits); err != nil {
		return mint.Config{}, err
	}

	rules := mint.DefaultRules()
	for name, rs := range d.Mint.Rules {
		tier, err := mint.ParseTier(name)
		if err != nil {
			return mint.Config{}, fmt.Errorf("mint.rules: %w", err)
		}
		rule := mint.TierRule{Ratifications: rs.Ratifications}
		if rs.Delay != "" {
			if rule.Delay, err = time.ParseDuration(rs.Delay); err != nil {
				return mint.Config{}, fmt.Errorf("mint.rules.%s.delay: %w", name, err)
			}
		}
		rules[tier] = rule
	}

	return mint.Config{
		Self:       d.Controller.Address,
		Thresholds: thresholds,
		Limits:     limits,
		Rules:      rules,
		FillPools:  d.Mint.FillPools,
	}, nil
}

func (t TripleSpec) triple(field string) (mint.Triple, error) {
	var out mint.Triple
	for i, s := range []string{t.Instant, t.Ratified, t.Jumbo} {
		v, err := WholeTokens(s)
		if err != nil {
			return mint.Triple{}, fmt.Errorf("%s.%s: %w", field, mint.Tier(i), err)
		}
		out[i] = v
	}
	return out, nil
}

// WholeTokens parses a whole-token amount into base units.
func WholeTokens(s string) (*uint256.Int, error) {
	n, err := contracts.ParseAmount(s)
	if err != nil {
		return nil, err
	}
	v, overflow := new(uint256.Int).MulOverflow(n, contracts.Tokens(1))
	if overflow {
		return nil, fmt.Errorf("%w: %s tokens overflows", contracts.ErrInvalidAmount, s)
	}
	return v, nil
}

// SweepInterval is the parsed interval, one minute when unset.
func (p *PolicySpec) SweepInterval() (time.Duration, error) {
	if p.Interval == "" {
		return time.Minute, nil
	}
	d, err := time.ParseDuration(p.Interval)
	if err != nil {
		return 0, fmt.Errorf("policy.interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("policy.interval must be positive")
	}
	return d, nil
}
