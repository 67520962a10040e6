package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corePools/internal/model"
)

func TestJSONFileWritesIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "core_pools.json")
	sink := NewJSONFile(path)

	pools := model.CorePools{
		"mainnet":  {"0xdef": "bb-a-EUR", "0xabc": "bb-a-USD"},
		"arbitrum": {},
	}
	require.NoError(t, sink.PutCorePools(context.Background(), model.Snapshot{Pools: pools}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `{
  "arbitrum": {},
  "mainnet": {
    "0xabc": "bb-a-USD",
    "0xdef": "bb-a-EUR"
  }
}
`
	assert.Equal(t, want, string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONFileOverwritesAndIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core_pools.json")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new one"), 0o644))

	sink := NewJSONFile(path)
	pools := model.CorePools{"mainnet": {"0x01": "A&B<C>"}}

	require.NoError(t, sink.PutCorePools(context.Background(), model.Snapshot{Pools: pools}))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, sink.PutCorePools(context.Background(), model.Snapshot{Pools: pools}))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"A&B<C>"`)

	read, err := ReadCorePools(path)
	require.NoError(t, err)
	assert.Equal(t, pools, read)
}
