package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCorePoolsHasEveryChain(t *testing.T) {
	pools := NewCorePools([]string{"mainnet", "arbitrum"})

	require.Len(t, pools, 2)
	assert.Empty(t, pools["mainnet"])
	assert.Empty(t, pools["arbitrum"])
	assert.Equal(t, []string{"arbitrum", "mainnet"}, pools.Chains())
}

func TestMergeWhitelistKeepsQuerySymbol(t *testing.T) {
	pools := NewCorePools([]string{"mainnet"})
	pools.SetChain("mainnet", []PoolRecord{{ID: "0xabc", Symbol: "bb-a-USD"}})

	added, err := pools.MergeWhitelist(Whitelist{
		"mainnet": {"0xabc": "OLD", "0xdef": "bb-a-EUR"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"0xabc": "bb-a-USD", "0xdef": "bb-a-EUR"}, pools["mainnet"])
	assert.Equal(t, map[string][]string{"mainnet": {"0xdef"}}, added)
}

func TestMergeWhitelistKeepsIDsVerbatim(t *testing.T) {
	const mixed = "0x5C6Ee304399DBdB9C8Ef030aB642B10820DB8F56000200000000000000000014"
	const lower = "0x5c6ee304399dbdb9c8ef030ab642b10820db8f56000200000000000000000014"

	pools := NewCorePools([]string{"mainnet"})
	pools.SetChain("mainnet", []PoolRecord{{ID: mixed, Symbol: "B-80BAL-20WETH"}})

	added, err := pools.MergeWhitelist(Whitelist{
		"mainnet": {mixed: "OLD", lower: "listed"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{mixed: "B-80BAL-20WETH", lower: "listed"}, pools["mainnet"])
	assert.Equal(t, map[string][]string{"mainnet": {lower}}, added)
}

func TestMergeWhitelistIntoEmptyChain(t *testing.T) {
	pools := NewCorePools([]string{"gnosis", "base"})

	_, err := pools.MergeWhitelist(Whitelist{"gnosis": {"0x01": "sDAI"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"0x01": "sDAI"}, pools["gnosis"])
	assert.Empty(t, pools["base"])
}

func TestMergeWhitelistUnknownChain(t *testing.T) {
	pools := NewCorePools([]string{"mainnet"})

	added, err := pools.MergeWhitelist(Whitelist{
		"mainnet": {"0x01": "A"},
		"fantom":  {"0x02": "B"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChain))
	assert.Contains(t, err.Error(), "fantom")
	assert.Nil(t, added)
	assert.Empty(t, pools["mainnet"], "failed merge must not mutate the mapping")
}

func TestSnapshotSource(t *testing.T) {
	pools := NewCorePools([]string{"mainnet"})
	pools.SetChain("mainnet", []PoolRecord{{ID: "0x01", Symbol: "A"}})
	added, err := pools.MergeWhitelist(Whitelist{"mainnet": {"0x02": "B"}})
	require.NoError(t, err)

	snap := Snapshot{Pools: pools, Whitelisted: added}

	assert.Equal(t, SourceQuery, snap.Source("mainnet", "0x01"))
	assert.Equal(t, SourceWhitelist, snap.Source("mainnet", "0x02"))

	q, w := snap.CountBySource("mainnet")
	assert.Equal(t, 1, q)
	assert.Equal(t, 1, w)
	assert.Equal(t, 2, pools.Count())
}
