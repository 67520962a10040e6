package verify

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"corePools/internal/model"
)

// CodeChecker reports whether a contract is deployed at an address.
type CodeChecker interface {
	HasCode(ctx context.Context, address common.Address) (bool, error)
}

// ChainIDReader returns the chain id reported by an RPC endpoint.
type ChainIDReader interface {
	GetChainID(ctx context.Context) (*big.Int, error)
}

// MatchChainID fails when the endpoint serves a different chain than expected.
func MatchChainID(ctx context.Context, chain string, want uint64, reader ChainIDReader) error {
	got, err := reader.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("%s: chain id: %w", chain, err)
	}
	if !got.IsUint64() || got.Uint64() != want {
		return fmt.Errorf("%s: rpc serves chain id %s, expected %d", chain, got, want)
	}
	return nil
}

// PoolAddress returns the contract address encoded in a pool id. Balancer v2 pool
// ids carry the pool address in their first 20 bytes.
func PoolAddress(id string) (common.Address, error) {
	b, err := hexutil.Decode(strings.TrimSpace(id))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid pool id %q: %w", id, err)
	}
	if len(b) < common.AddressLength {
		return common.Address{}, fmt.Errorf("pool id %q too short", id)
	}
	return common.BytesToAddress(b[:common.AddressLength]), nil
}

// MissingPool is a core pool without contract code at its address.
type MissingPool struct {
	Chain   string
	PoolID  string
	Symbol  string
	Address common.Address
}

// Report summarizes a verification pass.
type Report struct {
	Checked int
	Skipped []string
	Missing []MissingPool
}

// OK reports whether every checked pool has code.
func (r Report) OK() bool {
	return len(r.Missing) == 0
}

// Check verifies every pool of each chain that has a checker. Chains without a
// checker are skipped.
func Check(ctx context.Context, pools model.CorePools, checkers map[string]CodeChecker, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var report Report
	for _, chain := range pools.Chains() {
		checker, ok := checkers[chain]
		if !ok || checker == nil {
			report.Skipped = append(report.Skipped, chain)
			logger.Info("skip chain without rpc", zap.String("chain", chain))
			continue
		}

		ids := make([]string, 0, len(pools[chain]))
		for id := range pools[chain] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			select {
			case <-ctx.Done():
				return Report{}, ctx.Err()
			default:
			}

			addr, err := PoolAddress(id)
			if err != nil {
				return Report{}, fmt.Errorf("%s: %w", chain, err)
			}
			hasCode, err := checker.HasCode(ctx, addr)
			if err != nil {
				return Report{}, fmt.Errorf("%s: code at %s: %w", chain, addr.Hex(), err)
			}
			report.Checked++
			if !hasCode {
				symbol := pools[chain][id]
				report.Missing = append(report.Missing, MissingPool{Chain: chain, PoolID: id, Symbol: symbol, Address: addr})
				logger.Warn("pool has no code",
					zap.String("chain", chain),
					zap.String("pool_id", id),
					zap.String("symbol", symbol),
					zap.String("address", addr.Hex()),
				)
			}
		}
	}
	return report, nil
}
