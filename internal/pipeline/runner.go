package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"corePools/internal/metrics"
	"corePools/internal/model"
	"corePools/internal/storage"
	"corePools/internal/subgraph"
)

// Resolver maps a chain name to its subgraph endpoint.
type Resolver interface {
	Resolve(chain string) (string, error)
}

// Fetcher runs the core pools query against an endpoint.
type Fetcher interface {
	FetchPools(ctx context.Context, endpoint string) (subgraph.Result, error)
}

// RunConfig holds the inputs of a run.
type RunConfig struct {
	Chains    []string
	Whitelist model.Whitelist
}

// Runner queries every chain, merges the whitelist and hands the result to the sinks.
type Runner struct {
	cfg      RunConfig
	resolver Resolver
	fetcher  Fetcher
	sinks    []storage.Sink
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewRunner builds a Runner with its dependencies. metrics may be nil.
func NewRunner(cfg RunConfig, resolver Resolver, fetcher Fetcher, sinks []storage.Sink, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		resolver: resolver,
		fetcher:  fetcher,
		sinks:    sinks,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes the pipeline. Nothing is written unless every chain was queried
// and the whitelist merged cleanly.
func (r *Runner) Run(ctx context.Context) (model.Snapshot, error) {
	if r.resolver == nil {
		return model.Snapshot{}, fmt.Errorf("resolver is nil")
	}
	if r.fetcher == nil {
		return model.Snapshot{}, fmt.Errorf("fetcher is nil")
	}
	if err := validateChains(r.cfg.Chains); err != nil {
		return model.Snapshot{}, err
	}

	pools, err := r.Collect(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	added, err := pools.MergeWhitelist(r.cfg.Whitelist)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("merge whitelist: %w", err)
	}

	snapshot := model.Snapshot{
		RunID:       uuid.NewString(),
		CreatedAt:   r.now().UTC(),
		Pools:       pools,
		Whitelisted: added,
	}

	for _, chain := range pools.Chains() {
		query, whitelist := snapshot.CountBySource(chain)
		r.logger.Info("chain merged",
			zap.String("chain", chain),
			zap.Int("query_pools", query),
			zap.Int("whitelist_pools", whitelist),
		)
	}

	for _, sink := range r.sinks {
		if err := sink.PutCorePools(ctx, snapshot); err != nil {
			return model.Snapshot{}, fmt.Errorf("store core pools: %w", err)
		}
	}
	r.metrics.ObserveSnapshot(snapshot)

	r.logger.Info("run complete",
		zap.String("run_id", snapshot.RunID),
		zap.Int("chains", len(pools)),
		zap.Int("pools", pools.Count()),
	)
	return snapshot, nil
}

// Collect queries every configured chain in order and returns the matches.
// A chain whose response lacks data.pools contributes an empty mapping; every
// other failure aborts the collection.
func (r *Runner) Collect(ctx context.Context) (model.CorePools, error) {
	pools := model.NewCorePools(r.cfg.Chains)
	for _, chain := range r.cfg.Chains {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		endpoint, err := r.resolver.Resolve(chain)
		if err != nil {
			return nil, fmt.Errorf("resolve endpoint: %w", err)
		}

		r.logger.Debug("query subgraph", zap.String("chain", chain), zap.String("url", endpoint))

		start := time.Now()
		res, err := r.fetcher.FetchPools(ctx, endpoint)
		elapsed := time.Since(start)
		if err != nil {
			r.metrics.ObserveFetch(chain, metrics.ResultFailure, elapsed)
			return nil, fmt.Errorf("query %s: %w", chain, err)
		}

		if !res.Found {
			r.metrics.ObserveFetch(chain, metrics.ResultNoData, elapsed)
			r.logger.Warn("no pools in subgraph response",
				zap.String("chain", chain),
				zap.Strings("graphql_errors", res.Errors),
			)
			continue
		}

		if res.Skipped > 0 {
			r.logger.Warn("dropped pools without id", zap.String("chain", chain), zap.Int("count", res.Skipped))
		}

		r.metrics.ObserveFetch(chain, metrics.ResultOK, elapsed)
		pools.SetChain(chain, res.Pools)
		r.logger.Info("chain queried",
			zap.String("chain", chain),
			zap.Int("pools", len(res.Pools)),
			zap.Duration("elapsed", elapsed),
		)
	}
	return pools, nil
}

func validateChains(chains []string) error {
	if len(chains) == 0 {
		return fmt.Errorf("at least one chain is required")
	}
	seen := make(map[string]struct{}, len(chains))
	for _, chain := range chains {
		if chain == "" {
			return fmt.Errorf("empty chain name")
		}
		if _, ok := seen[chain]; ok {
			return fmt.Errorf("duplicate chain %q", chain)
		}
		seen[chain] = struct{}{}
	}
	return nil
}
