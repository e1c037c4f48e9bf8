package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mindburn-Labs/mintgov/pkg/auth"
	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
	"github.com/Mindburn-Labs/mintgov/pkg/mint"
	"github.com/Mindburn-Labs/mintgov/pkg/store"
)

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("f", config.Load().DeploymentFile, "deployment file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	d, err := config.LoadDeployment(*path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid: %v\n", err)
		return 1
	}
	mc, err := d.MintConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid: %v\n", err)
		return 1
	}
	ec := d.EngineConfig()

	_, _ = fmt.Fprintf(stdout, "%s: ok (format %s)\n", *path, d.Version)
	_, _ = fmt.Fprintf(stdout, "  engine      %s, %d signers, threshold %d, veto threshold %d\n",
		ec.Self, len(d.Engine.Signers), orDefault(ec.Threshold, 2), orDefault(ec.VetoThreshold, 1))
	_, _ = fmt.Fprintf(stdout, "  controller  %s\n", d.Controller.Address)
	for i, rule := range mc.Rules {
		tier := mint.Tier(i)
		_, _ = fmt.Fprintf(stdout, "  %-11s threshold %s, limit %s, %d ratifications, delay %s\n",
			tier, whole(mc.Thresholds[tier].Dec()), whole(mc.Limits[tier].Dec()), rule.Ratifications, rule.Delay)
	}
	if d.Policy != nil {
		_, _ = fmt.Fprintf(stdout, "  policy      %d rules vetoed as %s\n", len(d.Policy.Rules), d.Policy.Signer)
	}
	return 0
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// whole renders a base-unit amount in whole tokens.
func whole(dec string) string {
	const decimals = 18
	if len(dec) <= decimals {
		return "0." + strings.TrimRight(strings.Repeat("0", decimals-len(dec))+dec, "0")
	}
	frac := strings.TrimRight(dec[len(dec)-decimals:], "0")
	if frac == "" {
		return dec[:len(dec)-decimals]
	}
	return dec[:len(dec)-decimals] + "." + frac
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "snapshot store driver")
	history := fs.Int("history", 5, "number of snapshots to list")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := store.Open(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = s.Close() }()

	snaps, err := s.History(ctx, *history)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(snaps) == 0 {
		_, _ = fmt.Fprintln(stdout, "no snapshots stored")
		return 0
	}
	for _, snap := range snaps {
		_, _ = fmt.Fprintf(stdout, "revision %-6d format %-6s saved %s head %s\n",
			snap.Revision, snap.Format, snap.SavedAt.Format(time.RFC3339), snap.LedgerHead)
	}
	if err := config.CheckFormat(snaps[0].Format); err != nil {
		_, _ = fmt.Fprintf(stderr, "latest snapshot cannot be loaded: %v\n", err)
		return 1
	}
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("sub", "", "operator name")
	addr := fs.String("addr", "", "governance address the token acts as")
	roles := fs.String("roles", "", "comma-separated roles")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *subject == "" || *addr == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: mintgov token -sub <name> -addr <address> [-roles a,b] [-ttl 1h]")
		return 2
	}
	who, err := contracts.ParseAddress(*addr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	keys, err := auth.NewHMACKeySet([]byte(config.Load().JWTSecret))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var list []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			list = append(list, r)
		}
	}
	tok, err := auth.IssueToken(context.Background(), keys, *subject, who, list, *ttl)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, tok)
	return 0
}

func runHealth(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(stderr)
	url := fs.String("url", "http://localhost:"+config.Load().Port, "node base URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.TrimRight(*url, "/") + "/health")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Status string `json:"status"`
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status != "ok" {
		_, _ = fmt.Fprintf(stderr, "Health check failed: unexpected body (%v)\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "OK")
	return 0
}
