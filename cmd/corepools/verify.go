package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"corePools/internal/chain"
	"corePools/internal/chains"
	"corePools/internal/config"
	"corePools/internal/storage"
	"corePools/internal/verify"
)

func runVerify(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadVerify(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.RPC) == 0 {
		return fmt.Errorf("at least one rpc url is required")
	}

	pools, err := storage.ReadCorePools(cfg.In)
	if err != nil {
		return err
	}

	registry, err := chains.Default()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkers := make(map[string]verify.CodeChecker, len(cfg.RPC))
	for name, url := range cfg.RPC {
		client, err := chain.NewClient(ctx, url)
		if err != nil {
			return fmt.Errorf("connect rpc %s: %w", name, err)
		}
		defer client.Close()

		if known, ok := registry.Lookup(name); ok && known.ChainID != 0 {
			if err := verify.MatchChainID(ctx, name, known.ChainID, client); err != nil {
				return err
			}
		}

		block, err := client.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("latest block %s: %w", name, err)
		}
		logger.Info("rpc connected", zap.String("chain", name), zap.Uint64("block", block))
		checkers[name] = client
	}

	logger.Info("verify start", zap.String("in", cfg.In), zap.Int("chains", len(pools)), zap.Int("pools", pools.Count()))

	report, err := verify.Check(ctx, pools, checkers, logger)
	if err != nil {
		return err
	}

	logger.Info("verify complete",
		zap.Int("checked", report.Checked),
		zap.Strings("skipped", report.Skipped),
		zap.Int("missing", len(report.Missing)),
	)
	if !report.OK() {
		return fmt.Errorf("%d pools without contract code", len(report.Missing))
	}
	return nil
}
