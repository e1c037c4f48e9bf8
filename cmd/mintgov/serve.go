package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/mintgov/pkg/api"
	"github.com/Mindburn-Labs/mintgov/pkg/archive"
	"github.com/Mindburn-Labs/mintgov/pkg/auth"
	"github.com/Mindburn-Labs/mintgov/pkg/config"
	"github.com/Mindburn-Labs/mintgov/pkg/node"
	"github.com/Mindburn-Labs/mintgov/pkg/observability"
	"github.com/Mindburn-Labs/mintgov/pkg/store"
)

const idempotencyTTL = 24 * time.Hour

const idempotencySchema = `
CREATE TABLE IF NOT EXISTS idempotency_keys (
	key         TEXT PRIMARY KEY,
	status_code INTEGER NOT NULL,
	headers     JSONB NOT NULL,
	body        BYTEA NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL
);`

// serveSettings loads the environment and applies command-line overrides.
func serveSettings(args []string, stderr io.Writer) (*config.Config, error) {
	cfg := config.Load()
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.DeploymentFile, "deployment", cfg.DeploymentFile, "deployment file")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	fs.StringVar(&cfg.StoreDriver, "store", cfg.StoreDriver, "snapshot store driver (memory, sqlite, postgres, redis)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(args []string, stdout, stderr io.Writer) int {
	cfg, err := serveSettings(args, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	logger := newLogger(stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("mintgov stopped", "error", err)
		return 1
	}
	return 0
}

//nolint:gocognit
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	d, err := config.LoadDeployment(cfg.DeploymentFile)
	if err != nil {
		return err
	}

	otel := observability.DefaultConfig()
	otel.ServiceVersion = version
	otel.OTLPEndpoint = cfg.OTLPEndpoint
	otel.Enabled = cfg.OTLPEndpoint != ""
	otel.Insecure = true
	telemetry, err := observability.New(ctx, otel)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()
	metrics, err := observability.NewGovernanceMetrics(telemetry)
	if err != nil {
		return err
	}

	snapshots, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	opts := []node.Option{
		node.WithStore(snapshots),
		node.WithSinks(metrics),
		node.WithLogger(logger),
	}
	if cfg.ArchiveURL != "" {
		segments, err := archive.Open(ctx, cfg.ArchiveURL)
		if err != nil {
			_ = snapshots.Close()
			return err
		}
		opts = append(opts, node.WithArchive(segments))
	}
	n, err := node.New(ctx, d, opts...)
	if err != nil {
		_ = snapshots.Close()
		return err
	}

	keys, err := auth.NewHMACKeySet([]byte(cfg.JWTSecret))
	if err != nil {
		_ = n.Close(ctx)
		return err
	}
	limiter, idem, closeShared, err := sharedStores(ctx, cfg)
	if err != nil {
		_ = n.Close(ctx)
		return err
	}
	defer closeShared()

	handler := n.Handler(node.HTTPConfig{
		Validator:   auth.NewJWTValidator(keys),
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		Budget:      auth.Budget{RPM: cfg.RateLimitRPM, Burst: max(cfg.RateLimitRPM/6, 1)},
		Idempotency: idem,
		Telemetry:   telemetry,
	})
	// Unauthenticated floods are shed per client address before any token
	// is checked.
	perIP := api.NewRateLimiter(float64(cfg.RateLimitRPM)/6, cfg.RateLimitRPM)
	go perIP.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           perIP.Middleware(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	n.Start(ctx)
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "mintgov listening",
			"addr", srv.Addr,
			"engine", d.Engine.Address,
			"controller", d.Controller.Address,
			"store", cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("mintgov shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", "error", serr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return errors.Join(err, n.Close(shutdownCtx))
}

// sharedStores picks the rate limiter and idempotency backends that match
// the snapshot store, so replicas sharing a backend share budgets and
// replays.
func sharedStores(ctx context.Context, cfg *config.Config) (auth.LimiterStore, api.IdempotencyStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return auth.NewRedisLimiterStore(client, "mintgov:rl:"),
			api.NewRedisIdempotencyStore(client, "mintgov:idem:", idempotencyTTL),
			func() { _ = client.Close() }, nil
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if _, err := db.ExecContext(ctx, idempotencySchema); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("idempotency schema: %w", err)
		}
		idem := api.NewPostgresIdempotencyStore(db, idempotencyTTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go func() {
			t := time.NewTicker(time.Hour)
			defer t.Stop()
			for {
				select {
				case <-sweepCtx.Done():
					return
				case <-t.C:
					_, _ = idem.Cleanup(sweepCtx)
				}
			}
		}()
		return auth.NewMemoryLimiterStore(), idem, func() { cancel(); _ = db.Close() }, nil
	}
	return auth.NewMemoryLimiterStore(), api.NewMemoryIdempotencyStore(idempotencyTTL), func() {}, nil
}
