package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("env-file", "", "")
	flags.StringSlice("chains", nil, "")
	flags.String("endpoints", "", "")
	flags.String("whitelist", "config/whitelist.json", "")
	flags.String("out", "out/core_pools.json", "")
	flags.String("min-liquidity", "300000", "")
	flags.Int("first", 1000, "")
	flags.Duration("timeout", 0, "")
	flags.Int("max-retries", 0, "")
	flags.String("log-level", "info", "")
	return flags
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", runFlags())
	require.NoError(t, err)

	assert.Empty(t, cfg.Chains)
	assert.Empty(t, cfg.Endpoints)
	assert.Equal(t, "config/whitelist.json", cfg.Whitelist)
	assert.Equal(t, "out/core_pools.json", cfg.Out)
	assert.True(t, cfg.MinLiquidity.Equal(decimal.NewFromInt(300000)))
	assert.True(t, cfg.MinYieldFee.IsZero())
	assert.Equal(t, 1000, cfg.First)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", `
chains: [mainnet, arbitrum]
endpoints:
  mainnet: https://example.com/mainnet
min-liquidity: "500000"
out: from-file.json
`)
	flags := runFlags()
	require.NoError(t, flags.Parse([]string{"--out", "from-flag.json", "--max-retries", "2"}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)

	assert.Equal(t, []string{"mainnet", "arbitrum"}, cfg.Chains)
	assert.Equal(t, map[string]string{"mainnet": "https://example.com/mainnet"}, cfg.Endpoints)
	assert.Equal(t, "from-flag.json", cfg.Out)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.True(t, cfg.MinLiquidity.Equal(decimal.NewFromInt(500000)))
}

func TestLoadEndpointsFlag(t *testing.T) {
	flags := runFlags()
	require.NoError(t, flags.Parse([]string{
		"--chains", "mainnet,gnosis",
		"--endpoints", "mainnet=https://a.example/x, gnosis=https://b.example/y",
	}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, []string{"mainnet", "gnosis"}, cfg.Chains)
	assert.Equal(t, map[string]string{
		"mainnet": "https://a.example/x",
		"gnosis":  "https://b.example/y",
	}, cfg.Endpoints)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "COREPOOLS_SUBGRAPH_API_KEY=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("COREPOOLS_SUBGRAPH_API_KEY") })

	flags := runFlags()
	require.NoError(t, flags.Parse([]string{"--env-file", envFile}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.SubgraphAPIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][]string{
		"first too large":   {"--first", "5000"},
		"bad log level":     {"--log-level", "loud"},
		"bad endpoint url":  {"--endpoints", "mainnet=not a url"},
		"bad min liquidity": {"--min-liquidity", "lots"},
		"empty out":         {"--out", ""},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			flags := runFlags()
			require.NoError(t, flags.Parse(args))
			_, err := Load("", flags)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), runFlags())
	assert.Error(t, err)
}

func TestLoadVerify(t *testing.T) {
	flags := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	flags.String("env-file", "", "")
	flags.String("in", "out/core_pools.json", "")
	flags.String("rpc", "", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--rpc", "mainnet=https://rpc.example/eth"}))

	cfg, err := LoadVerify("", flags)
	require.NoError(t, err)
	assert.Equal(t, "out/core_pools.json", cfg.In)
	assert.Equal(t, map[string]string{"mainnet": "https://rpc.example/eth"}, cfg.RPC)
}
