package subgraph

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQuery(t *testing.T) {
	q := DefaultFilter().Query()

	for _, want := range []string{
		"first: 1000",
		`priceRateProviders_: {address_not: "0x0000000000000000000000000000000000000000"}`,
		`{poolType_contains_nocase: "stable"}, {poolType_contains_nocase: "gyro"}`,
		"totalLiquidity_gt: 300000",
		"protocolYieldFeeCache_gt: 0",
		"id\n",
		"symbol\n",
	} {
		assert.True(t, strings.Contains(q, want), "query missing %q:\n%s", want, q)
	}
}

func TestQueryCustomThresholds(t *testing.T) {
	f := DefaultFilter()
	f.MinLiquidity = decimal.RequireFromString("1250000.5")
	f.MinYieldFee = decimal.RequireFromString("0.1")
	f.First = 10

	q := f.Query()
	assert.Contains(t, q, "first: 10,")
	assert.Contains(t, q, "totalLiquidity_gt: 1250000.5")
	assert.Contains(t, q, "protocolYieldFeeCache_gt: 0.1")
}

func TestFilterValidate(t *testing.T) {
	require.NoError(t, DefaultFilter().Validate())

	f := DefaultFilter()
	f.First = MaxFirst + 1
	assert.Error(t, f.Validate())

	f = DefaultFilter()
	f.PoolTypes = nil
	assert.Error(t, f.Validate())

	f = DefaultFilter()
	f.PoolTypes = []string{`sta"ble`}
	assert.Error(t, f.Validate())

	f = DefaultFilter()
	f.MinLiquidity = decimal.NewFromInt(-1)
	assert.Error(t, f.Validate())
}
