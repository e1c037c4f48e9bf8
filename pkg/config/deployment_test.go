package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
)

const validDeployment = `
version: "1.0.0"
engine:
  address: multisig
  signers: [owner-1, owner-2, owner-3]
  threshold: 2
  veto_threshold: 2
controller:
  address: controller
token:
  address: tusd
  registry: registry
  name: TrueUSD
  symbol: TUSD
mint:
  thresholds: {instant: "10", ratified: "100", jumbo: "1000"}
  limits: {instant: "30", ratified: "300", jumbo: "3000"}
  fill_pools: true
  rules:
    instant: {ratifications: 0, delay: 30m}
    jumbo: {ratifications: 3}
roles:
  mint_key: mint-key
  pause_key: pause-key
  ratifiers: [ratifier-1, ratifier-2]
policy:
  signer: owner-3
  interval: 30s
  rules:
    - name: stale
      expr: 'age > duration("72h")'
`

func TestParseDeployment(t *testing.T) {
	d, err := config.ParseDeployment([]byte(validDeployment))
	require.NoError(t, err)

	assert.Equal(t, []contracts.Address{"owner-1", "owner-2", "owner-3"}, d.Engine.Signers)
	ec := d.EngineConfig()
	assert.Equal(t, contracts.Address("multisig"), ec.Self)
	assert.Equal(t, 2, ec.VetoThreshold)

	mc, err := d.MintConfig()
	require.NoError(t, err)
	assert.Equal(t, contracts.Address("controller"), mc.Self)
	assert.True(t, mc.Thresholds[mint.TierRatified].Eq(contracts.Tokens(100)))
	assert.True(t, mc.Limits[mint.TierJumbo].Eq(contracts.Tokens(3000)))
	assert.True(t, mc.FillPools)
	assert.Equal(t, mint.TierRule{Delay: 30 * time.Minute}, mc.Rules[mint.TierInstant])
	assert.Equal(t, mint.DefaultRules()[mint.TierRatified], mc.Rules[mint.TierRatified])
	assert.Equal(t, 3, mc.Rules[mint.TierJumbo].Ratifications)

	require.NotNil(t, d.Policy)
	iv, err := d.Policy.SweepInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, iv)
}

func TestLoadDeployment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDeployment), 0o600))

	d, err := config.LoadDeployment(path)
	require.NoError(t, err)
	assert.Equal(t, "TrueUSD", d.Token.Name)

	_, err = config.LoadDeployment(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExampleDeployment(t *testing.T) {
	d, err := config.LoadDeployment(filepath.Join("..", "..", "deploy", "deployment.yaml"))
	require.NoError(t, err)
	assert.Len(t, d.Engine.Signers, 5)
	assert.Equal(t, 3, d.EngineConfig().Threshold)

	mc, err := d.MintConfig()
	require.NoError(t, err)
	assert.Equal(t, contracts.Tokens(100000), mc.Thresholds[mint.TierInstant])
	assert.Equal(t, time.Hour, mc.Rules[mint.TierInstant].Delay)
	assert.Equal(t, 2, mc.Rules[mint.TierJumbo].Ratifications)

	interval, err := d.Policy.SweepInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, interval)
}

func TestParseDeploymentRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "schema: unknown field",
			doc: `version: "1.0.0"
engine: {address: m, signers: [a, b]}
controller: {address: c}
mint: {thresholds: {instant: "1", ratified: "2", jumbo: "3"}, limits: {instant: "1", ratified: "2", jumbo: "3"}}
extra: true`,
			want: "schema validation failed",
		},
		{
			name: "schema: non numeric amount",
			doc: `version: "1.0.0"
engine: {address: m, signers: [a, b]}
controller: {address: c}
mint: {thresholds: {instant: "ten", ratified: "2", jumbo: "3"}, limits: {instant: "1", ratified: "2", jumbo: "3"}}`,
			want: "schema validation failed",
		},
		{
			name: "incompatible version",
			doc: `version: "2.1.0"
engine: {address: m, signers: [a, b]}
controller: {address: c}
mint: {thresholds: {instant: "1", ratified: "2", jumbo: "3"}, limits: {instant: "1", ratified: "2", jumbo: "3"}}`,
			want: "incompatible format version",
		},
		{
			name: "threshold above roster",
			doc: `version: "1.0.0"
engine: {address: m, signers: [a, b], threshold: 3}
controller: {address: c}
mint: {thresholds: {instant: "1", ratified: "2", jumbo: "3"}, limits: {instant: "1", ratified: "2", jumbo: "3"}}`,
			want: "exceed",
		},
		{
			name: "thresholds out of order",
			doc: `version: "1.0.0"
engine: {address: m, signers: [a, b]}
controller: {address: c}
mint: {thresholds: {instant: "5", ratified: "2", jumbo: "3"}, limits: {instant: "1", ratified: "2", jumbo: "3"}}`,
			want: "thresholds",
		},
		{
			name: "unknown tier rule",
			doc: `version: "1.0.0"
engine: {address: m, signers: [a, b]}
controller: {address: c}
mint:
  thresholds: {instant: "1", ratified: "2", jumbo: "3"}
  limits: {instant: "1", ratified: "2", jumbo: "3"}
  rules: {mega: {ratifications: 1}}`,
			want: "schema validation failed",
		},
		{
			name: "policy signer not a member",
			doc: `version: "1.0.0"
engine: {address: m, signers: [a, b]}
controller: {address: c}
mint: {thresholds: {instant: "1", ratified: "2", jumbo: "3"}, limits: {instant: "1", ratified: "2", jumbo: "3"}}
policy: {signer: z, rules: [{name: r, expr: "true"}]}`,
			want: "not an engine signer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseDeployment([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, config.CheckFormat(config.FormatVersion))
	assert.NoError(t, config.CheckFormat("1.4.2"))
	assert.ErrorIs(t, config.CheckFormat("0.9.0"), config.ErrIncompatibleFormat)
	assert.ErrorIs(t, config.CheckFormat("not-a-version"), config.ErrIncompatibleFormat)
}

func TestWholeTokens(t *testing.T) {
	v, err := config.WholeTokens("25")
	require.NoError(t, err)
	assert.True(t, v.Eq(contracts.Tokens(25)))

	_, err = config.WholeTokens("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	assert.ErrorIs(t, err, contracts.ErrInvalidAmount)
}
