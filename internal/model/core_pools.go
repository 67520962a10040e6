package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownChain is returned when the whitelist names a chain that was not queried.
var ErrUnknownChain = errors.New("chain not present in query results")

// Whitelist maps chain -> pool id -> symbol for pools that are always included.
type Whitelist map[string]map[string]string

// CorePools maps chain -> pool id -> symbol.
type CorePools map[string]map[string]string

// NewCorePools returns a mapping with an empty entry for every chain.
func NewCorePools(chains []string) CorePools {
	pools := make(CorePools, len(chains))
	for _, chain := range chains {
		pools[chain] = make(map[string]string)
	}
	return pools
}

// SetChain records the query results for a chain, creating its entry if needed.
func (c CorePools) SetChain(chain string, records []PoolRecord) {
	entry, ok := c[chain]
	if !ok {
		entry = make(map[string]string, len(records))
		c[chain] = entry
	}
	for _, record := range records {
		entry[record.ID] = record.Symbol
	}
}

// MergeWhitelist inserts whitelist entries whose id is not already present.
// It returns the ids added per chain. Every whitelist chain must already exist in c;
// otherwise nothing is merged and the error wraps ErrUnknownChain.
func (c CorePools) MergeWhitelist(wl Whitelist) (map[string][]string, error) {
	for _, chain := range sortedKeys(wl) {
		if _, ok := c[chain]; !ok {
			return nil, fmt.Errorf("whitelist chain %q: %w", chain, ErrUnknownChain)
		}
	}

	added := make(map[string][]string)
	for chain, entries := range wl {
		target := c[chain]
		for id, symbol := range entries {
			if _, exists := target[id]; exists {
				continue
			}
			target[id] = symbol
			added[chain] = append(added[chain], id)
		}
	}
	for chain := range added {
		sort.Strings(added[chain])
	}
	return added, nil
}

// Chains returns chain names in sorted order.
func (c CorePools) Chains() []string {
	return sortedKeys(c)
}

// Count returns the total number of pools across all chains.
func (c CorePools) Count() int {
	total := 0
	for _, entries := range c {
		total += len(entries)
	}
	return total
}

func sortedKeys(m map[string]map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
