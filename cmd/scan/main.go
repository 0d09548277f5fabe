// Command scan fetches the latest tokens from the configured chain data
// provider, scores them, and persists the resulting risk reports. Runs once
// by default, or periodically with --interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tokenguard/internal/analyzer"
	"tokenguard/internal/cache"
	"tokenguard/internal/config"
	"tokenguard/internal/domain"
	"tokenguard/internal/evmrpc"
	"tokenguard/internal/graph"
	"tokenguard/internal/logging"
	"tokenguard/internal/observability"
	"tokenguard/internal/provider"
	"tokenguard/internal/risk"
	"tokenguard/internal/storage"
	chstore "tokenguard/internal/storage/clickhouse"
	"tokenguard/internal/storage/memory"
	"tokenguard/internal/storage/migrations"
	pgstore "tokenguard/internal/storage/postgres"
)

func main() {
	cfg := config.FromEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := logging.New(cfg.LogLevel)

	// Metrics server
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Infof("starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics server error")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Infof("received signal %v, initiating graceful shutdown", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warnf("received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err := run(ctx, logger, cfg)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("error: %v", err)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, logger *logrus.Logger, cfg *config.Config) error {
	if err := cfg.ValidateProvider(); err != nil {
		return err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}

	prov, err := buildProvider(cfg, logger)
	if err != nil {
		return err
	}

	snapshots, reports, archive, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	a := analyzer.New(analyzer.Options{
		Provider:  prov,
		Scorer:    risk.NewScorer(snapshots, risk.WithLogger(logger)),
		Reports:   reports,
		Archive:   archive,
		BatchSize: cfg.BatchSize,
		Logger:    logger,
	})

	if cfg.Interval <= 0 {
		return runOnce(ctx, logger, a)
	}

	logger.Infof("running every %s", cfg.Interval)
	if err := runOnce(ctx, logger, a); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := runOnce(ctx, logger, a); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				// Periodic mode keeps going after a failed batch.
				logger.WithError(err).Error("batch run failed")
			}
		}
	}
}

func runOnce(ctx context.Context, logger *logrus.Logger, a *analyzer.Analyzer) error {
	result, err := a.Run(ctx)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		logger.Warnf("partial failure: %s", msg)
	}
	return nil
}

func buildProvider(cfg *config.Config, logger *logrus.Logger) (provider.Provider, error) {
	kind, err := cfg.ProviderKind()
	if err != nil {
		return nil, err
	}

	cacheOpts := []cache.Option{
		cache.WithHitHook(observability.RecordCacheHit),
		cache.WithMissHook(observability.RecordCacheMiss),
		cache.WithCoalescedHook(observability.RecordCacheCoalesced),
	}

	switch kind {
	case domain.ProviderRPC:
		client := evmrpc.NewClient(cfg.RPCEndpoint,
			evmrpc.WithLogger(logger),
			evmrpc.WithLatencyObserver(observability.RecordRPCLatency),
			evmrpc.WithRangeRetryObserver(observability.RecordRangeRetry))
		return provider.NewRPCProvider(client, cfg.FactoryAddress,
			provider.WithRPCTTL(cfg.CacheTTL),
			provider.WithRPCLogger(logger),
			provider.WithRPCCacheOptions(cacheOpts...)), nil
	case domain.ProviderGraph:
		client := graph.NewClient(cfg.GraphEndpoint, cfg.GraphAccessToken)
		return provider.NewGraphProvider(client, cfg.FactoryAddress,
			provider.WithGraphTTL(cfg.CacheTTL),
			provider.WithGraphCacheOptions(cacheOpts...)), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", kind)
}

func buildStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (
	storage.SnapshotStore, storage.ReportStore, storage.ReportArchive, func(), error,
) {
	if cfg.UseMemory {
		logger.Info("using in-memory storage")
		return memory.NewSnapshotStore(), memory.NewReportStore(), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	cleanup := pool.Close
	var archive storage.ReportArchive

	if cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			conn.Close()
			pool.Close()
			return nil, nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		archive = chstore.NewReportArchiveStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewSnapshotStore(pool), pgstore.NewReportStore(pool), archive, cleanup, nil
}
