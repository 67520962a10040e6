package subgraph

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxFirst is the largest page size the subgraph accepts.
const MaxFirst = 1000

// Filter holds the thresholds for core pool selection.
type Filter struct {
	MinLiquidity decimal.Decimal
	MinYieldFee  decimal.Decimal
	PoolTypes    []string
	First        int
}

// DefaultFilter returns the standard core pool criteria.
func DefaultFilter() Filter {
	return Filter{
		MinLiquidity: decimal.NewFromInt(300000),
		MinYieldFee:  decimal.Zero,
		PoolTypes:    []string{"stable", "gyro"},
		First:        MaxFirst,
	}
}

// Validate checks the filter is renderable.
func (f Filter) Validate() error {
	if f.First <= 0 || f.First > MaxFirst {
		return fmt.Errorf("first must be between 1 and %d", MaxFirst)
	}
	if len(f.PoolTypes) == 0 {
		return fmt.Errorf("at least one pool type is required")
	}
	for _, pt := range f.PoolTypes {
		if strings.TrimSpace(pt) == "" || strings.ContainsAny(pt, `"\`) {
			return fmt.Errorf("invalid pool type %q", pt)
		}
	}
	if f.MinLiquidity.IsNegative() {
		return fmt.Errorf("min liquidity must not be negative")
	}
	if f.MinYieldFee.IsNegative() {
		return fmt.Errorf("min yield fee must not be negative")
	}
	return nil
}

// Query renders the GraphQL query selecting pools that have a non-zero rate provider,
// a pool type containing one of PoolTypes (case-insensitive), total liquidity above
// MinLiquidity and a protocol yield fee above MinYieldFee.
func (f Filter) Query() string {
	types := make([]string, 0, len(f.PoolTypes))
	for _, pt := range f.PoolTypes {
		types = append(types, fmt.Sprintf(`{poolType_contains_nocase: %q}`, strings.TrimSpace(pt)))
	}

	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  pools(\n    first: %d,\n", f.First)
	b.WriteString("    where: {\n      and: [\n")
	fmt.Fprintf(&b, "        {priceRateProviders_: {address_not: %q}},\n", zeroAddress())
	fmt.Fprintf(&b, "        {or: [%s]},\n", strings.Join(types, ", "))
	fmt.Fprintf(&b, "        {totalLiquidity_gt: %s},\n", f.MinLiquidity.String())
	fmt.Fprintf(&b, "        {protocolYieldFeeCache_gt: %s}\n", f.MinYieldFee.String())
	b.WriteString("      ]\n    }\n  ) {\n    id\n    symbol\n  }\n}")
	return b.String()
}

func zeroAddress() string {
	return strings.ToLower(common.Address{}.Hex())
}
