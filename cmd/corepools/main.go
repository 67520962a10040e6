package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"corePools/internal/chains"
	"corePools/internal/config"
	"corePools/internal/metrics"
	"corePools/internal/pipeline"
	"corePools/internal/storage"
	"corePools/internal/storage/postgres"
	"corePools/internal/subgraph"
	"corePools/internal/whitelist"
)

func main() {
	root := &cobra.Command{
		Use:          "corepools",
		Short:        "Balancer core pools collector",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Query subgraphs, merge the whitelist and write core pools",
		RunE:  runCorePools,
	}

	runCmd.Flags().StringSlice("chains", nil, "chains to query (comma-separated), defaults to every registry chain")
	runCmd.Flags().String("endpoints", "", "subgraph url overrides (comma-separated chain=url)")
	runCmd.Flags().String("subgraph-api-key", "", "value substituted for {api_key} in subgraph urls")
	runCmd.Flags().String("whitelist", "config/whitelist.json", "whitelist JSON path")
	runCmd.Flags().String("out", "out/core_pools.json", "output JSON path")
	runCmd.Flags().String("min-liquidity", "300000", "minimum total liquidity (exclusive)")
	runCmd.Flags().String("min-yield-fee", "0", "minimum protocol yield fee (exclusive)")
	runCmd.Flags().Int("first", subgraph.MaxFirst, "maximum pools per chain")
	runCmd.Flags().Duration("timeout", 0, "per-request timeout, 0 means none")
	runCmd.Flags().Int("max-retries", 0, "retry attempts for transport errors and 5xx")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("pg-dsn", "", "optional Postgres DSN to store the snapshot")
	runCmd.Flags().String("metrics-file", "", "optional Prometheus textfile output path")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every core pool has contract code on chain",
		RunE:  runVerify,
	}

	verifyCmd.Flags().String("in", "out/core_pools.json", "core pools JSON path")
	verifyCmd.Flags().String("rpc", "", "RPC urls per chain (comma-separated chain=url)")
	verifyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(verifyCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCorePools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := chains.Default()
	if err != nil {
		return err
	}
	registry.WithAPIKey(cfg.SubgraphAPIKey).Override(cfg.Endpoints)

	chainList := cfg.Chains
	if len(chainList) == 0 {
		chainList = registry.Names()
	}

	wl, err := whitelist.Load(cfg.Whitelist)
	if err != nil {
		return err
	}

	filter := subgraph.DefaultFilter()
	filter.MinLiquidity = cfg.MinLiquidity
	filter.MinYieldFee = cfg.MinYieldFee
	filter.First = cfg.First

	client, err := subgraph.NewClient(subgraph.Config{
		Filter:       filter,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, &http.Client{}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.Sink{storage.NewJSONFile(cfg.Out)}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		last, ok, err := store.LastRun(ctx)
		if err != nil {
			return err
		}
		if ok {
			logger.Info("previous run",
				zap.String("run_id", last.ID),
				zap.Int("pools", last.PoolCount),
				zap.Int("chains", last.ChainCount),
				zap.Time("created_at", last.CreatedAt))
		}
		sinks = append(sinks, store)
	}

	reg := prometheus.NewRegistry()
	runMetrics := metrics.NewMetrics(reg)

	runner := pipeline.NewRunner(pipeline.RunConfig{
		Chains:    chainList,
		Whitelist: wl,
	}, registry, client, sinks, runMetrics, logger)

	logger.Info("corepools start",
		zap.Strings("chains", chainList),
		zap.String("whitelist", cfg.Whitelist),
		zap.String("out", cfg.Out),
		zap.String("min_liquidity", cfg.MinLiquidity.String()),
		zap.String("min_yield_fee", cfg.MinYieldFee.String()),
		zap.Int("first", cfg.First),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	_, runErr := runner.Run(ctx)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile, reg); err != nil {
			logger.Error("write metrics", zap.Error(err))
		}
	}
	return runErr
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
