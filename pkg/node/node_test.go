package node_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Mindburn-Labs/mintgov/pkg/api"
	"github.com/Mindburn-Labs/mintgov/pkg/archive"
	"github.com/Mindburn-Labs/mintgov/pkg/audit"
	"github.com/Mindburn-Labs/mintgov/pkg/auth"
	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/multisig"
	"github.com/Mindburn-Labs/mintgov/pkg/node"
	"github.com/Mindburn-Labs/mintgov/pkg/store"
)

const deploymentYAML = `
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
  name: Governed USD
  symbol: GUSD
mint:
  thresholds: {instant: "10", ratified: "100", jumbo: "1000"}
  limits: {instant: "30", ratified: "300", jumbo: "3000"}
  fill_pools: true
roles:
  mint_key: mint-key
  pause_key: pause-key
  fast_pause: fast-pause
  ratifiers: [ratifier-1, ratifier-2]
  checkers: [checker]
`

const (
	owner1  contracts.Address = "owner-1"
	owner2  contracts.Address = "owner-2"
	owner3  contracts.Address = "owner-3"
	mintKey contracts.Address = "mint-key"
	alice   contracts.Address = "alice"
)

func deployment(t *testing.T, extra string) *config.Deployment {
	t.Helper()
	d, err := config.ParseDeployment([]byte(deploymentYAML + extra))
	require.NoError(t, err)
	return d
}

func quiet() node.Option {
	return node.WithAuditLogger(audit.NewLoggerWithWriter(io.Discard))
}

func TestGenesisWiring(t *testing.T) {
	ctx := context.Background()
	n, err := node.New(ctx, deployment(t, ""), quiet())
	require.NoError(t, err)

	ctrl := n.Controller()
	assert.Equal(t, contracts.Address("multisig"), ctrl.Owner())
	assert.Equal(t, contracts.Address("controller"), n.Token().Owner())
	assert.Equal(t, contracts.Address("tusd"), ctrl.Token())
	assert.Equal(t, contracts.Address("registry"), ctrl.Registry())
	assert.Equal(t, contracts.Address("fast-pause"), ctrl.FastPause())
	assert.Equal(t, mintKey, ctrl.Roles().MintKey())
	assert.Equal(t, contracts.Address("pause-key"), ctrl.Roles().PauseKey())
	assert.True(t, ctrl.Roles().IsRatifier("ratifier-2"))
	assert.True(t, n.Attributes().HasAttribute("checker", contracts.AttrMintChecker))
	assert.Equal(t, "GUSD", n.Token().Info().Symbol)
	assert.Equal(t, "registry", string(n.Token().Info().Registry))
	assert.Equal(t, []contracts.Address{owner1, owner2, owner3}, n.Engine().Roster())
	assert.Equal(t, contracts.Address("controller"), n.Engine().Controller())
	require.NoError(t, n.Ledger().Verify())
	assert.Positive(t, n.Ledger().Length())
	assert.Nil(t, n.Sweeper())

	require.NoError(t, ctrl.Mints().InstantMint(ctx, mintKey, alice, contracts.Tokens(5)))
	assert.Equal(t, contracts.Tokens(5), n.Token().BalanceOf(alice))

	// The quorum reaches the controller through the engine.
	_, err = n.Engine().PauseMints(ctx, owner1)
	require.NoError(t, err)
	out, err := n.Engine().PauseMints(ctx, owner2)
	require.NoError(t, err)
	assert.Equal(t, multisig.OutcomeExecuted, out)
	assert.True(t, ctrl.Mints().Paused())
}

func TestCheckpointAndRestore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	d := deployment(t, "")

	n, err := node.New(ctx, d, node.WithStore(st), quiet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.Revision())

	require.NoError(t, n.Controller().Mints().InstantMint(ctx, mintKey, alice, contracts.Tokens(7)))
	_, err = n.Engine().RequestMint(ctx, owner1, alice, contracts.Tokens(50))
	require.NoError(t, err)
	snap, err := n.Checkpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Revision)
	assert.Equal(t, n.Ledger().Head(), snap.LedgerHead)

	restored, err := node.New(ctx, deployment(t, ""), node.WithStore(st), quiet())
	require.NoError(t, err)
	assert.Equal(t, int64(2), restored.Revision())
	assert.Equal(t, n.Ledger().Head(), restored.Ledger().Head())
	assert.Equal(t, contracts.Tokens(7), restored.Token().BalanceOf(alice))
	assert.Equal(t, n.Controller().Mints().Pools(), restored.Controller().Mints().Pools())
	assert.Equal(t, "GUSD", restored.Token().Info().Symbol)

	// The pending quorum action survives and completes after restore.
	pending, ok := restored.Engine().Pending()
	require.True(t, ok)
	assert.Equal(t, []contracts.Address{owner1}, pending.Approvals)
	out, err := restored.Engine().RequestMint(ctx, owner2, alice, contracts.Tokens(50))
	require.NoError(t, err)
	assert.Equal(t, multisig.OutcomeExecuted, out)
	ops := restored.Controller().Mints().Operations()
	require.Len(t, ops, 1)

	// The first node's revision is now stale.
	_, err = n.Checkpoint(ctx)
	require.NoError(t, err)
	_, err = restored.Checkpoint(ctx)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRestoreRejectsOtherDeployment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, err := node.New(ctx, deployment(t, ""), node.WithStore(st), quiet())
	require.NoError(t, err)

	other := deployment(t, "")
	other.Controller.Address = "controller-2"
	_, err = node.New(ctx, other, node.WithStore(st), quiet())
	assert.ErrorIs(t, err, node.ErrDeploymentMismatch)
}

func TestRestoreRejectsIncompatibleFormat(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, err := st.Save(ctx, store.Snapshot{Format: "2.0.0", State: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = node.New(ctx, deployment(t, ""), node.WithStore(st), quiet())
	assert.ErrorIs(t, err, config.ErrIncompatibleFormat)
}

func TestCheckpointSealsArchive(t *testing.T) {
	ctx := context.Background()
	fs, err := archive.NewFileStore(t.TempDir())
	require.NoError(t, err)
	st := store.NewMemoryStore()

	n, err := node.New(ctx, deployment(t, ""), node.WithStore(st), node.WithArchive(fs), quiet())
	require.NoError(t, err)
	require.NoError(t, n.Controller().Mints().InstantMint(ctx, mintKey, alice, contracts.Tokens(1)))
	_, err = n.Checkpoint(ctx)
	require.NoError(t, err)

	head := n.Status().ArchiveHead
	require.NotEmpty(t, head)
	var sealed int
	require.NoError(t, archive.Walk(ctx, fs, head, func(seg archive.Segment) error {
		sealed += len(seg.Entries)
		return nil
	}))
	assert.Equal(t, n.Ledger().Length(), sealed)

	// A restored node continues the same segment chain.
	restored, err := node.New(ctx, deployment(t, ""), node.WithStore(st), node.WithArchive(fs), quiet())
	require.NoError(t, err)
	assert.Equal(t, head, restored.Status().ArchiveHead)
	require.NoError(t, restored.Controller().Mints().InstantMint(ctx, mintKey, alice, contracts.Tokens(1)))
	_, err = restored.Checkpoint(ctx)
	require.NoError(t, err)
	seg, err := archive.Fetch(ctx, fs, restored.Status().ArchiveHead)
	require.NoError(t, err)
	assert.Equal(t, head, seg.Prev)
}

func TestPolicySweeperVetoes(t *testing.T) {
	ctx := context.Background()
	n, err := node.New(ctx, deployment(t, `
policy:
  signer: owner-3
  rules:
    - name: no-token-pause
      expr: 'kind == "pauseToken"'
`), quiet())
	require.NoError(t, err)
	require.NotNil(t, n.Sweeper())

	_, err = n.Engine().PauseToken(ctx, owner1)
	require.NoError(t, err)
	vetoed, err := n.Sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.True(t, vetoed)
	_, pending := n.Engine().Pending()
	assert.False(t, pending)
	assert.False(t, n.Token().Paused())
}

func TestStartClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()
	st := store.NewMemoryStore()
	n, err := node.New(ctx, deployment(t, `
policy:
  signer: owner-3
  interval: 5ms
  rules:
    - name: never
      expr: 'false'
`), node.WithStore(st), node.WithCheckpointInterval(5*time.Millisecond), quiet())
	require.NoError(t, err)

	n.Start(ctx)
	n.Start(ctx)
	require.Eventually(t, func() bool { return n.Revision() > 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, n.Close(ctx))

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, n.Revision(), snap.Revision)
}

type httpHarness struct {
	ts   *httptest.Server
	node *node.Node
	ks   *auth.HMACKeySet
}

func newHTTP(t *testing.T) *httpHarness {
	t.Helper()
	ctx := context.Background()
	n, err := node.New(ctx, deployment(t, ""), quiet())
	require.NoError(t, err)
	ks, err := auth.NewHMACKeySet([]byte(strings.Repeat("s", 32)))
	require.NoError(t, err)
	h := n.Handler(node.HTTPConfig{
		Validator:   auth.NewJWTValidator(ks),
		Limiter:     auth.NewMemoryLimiterStore(),
		Budget:      auth.Budget{RPM: 600, Burst: 100},
		Idempotency: api.NewMemoryIdempotencyStore(time.Hour),
	})
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &httpHarness{ts: ts, node: n, ks: ks}
}

func (h *httpHarness) do(t *testing.T, method, path string, who contracts.Address, roles []string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, rd)
	require.NoError(t, err)
	if who != "" {
		tok, err := auth.IssueToken(context.Background(), h.ks, string(who), who, roles, time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandlerMintAndAudit(t *testing.T) {
	h := newHTTP(t)
	before := h.node.Ledger().Length()

	resp := h.do(t, http.MethodPost, "/v1/mint/instant", mintKey, []string{auth.RoleMintKey},
		api.MintRequest{To: string(alice), Amount: contracts.Tokens(2).Dec()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contracts.Tokens(2), h.node.Token().BalanceOf(alice))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	// The mint and the audited request both land in the ledger.
	entries := h.node.Ledger().Since(uint64(before))
	require.Len(t, entries, 2)
	assert.Equal(t, contracts.EventMintInstant, entries[0].Type)

	resp = h.do(t, http.MethodGet, "/v1/node", mintKey, []string{auth.RoleMintKey}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st node.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "controller", st.Controller)
	assert.Equal(t, 3, st.Signers)
	assert.Equal(t, h.node.Ledger().Length(), st.LedgerLength)
}

func TestHandlerRejects(t *testing.T) {
	h := newHTTP(t)

	resp := h.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/v1/mint", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/v1/mint/pause", "observer", []string{auth.RoleObserver}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/v1/mint/instant", alice, nil,
		api.MintRequest{To: string(alice), Amount: "1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.True(t, h.node.Token().BalanceOf(alice).IsZero())

	resp = h.do(t, http.MethodGet, "/v1/audit/export?start=yesterday", alice, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerExport(t *testing.T) {
	h := newHTTP(t)
	resp := h.do(t, http.MethodGet, "/v1/audit/export?types="+contracts.EventRoleTransferred, owner1, []string{auth.RoleSigner}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Evidence-SHA256"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "manifest.json")
	assert.Contains(t, names, "entries.json")
}
