package whitelist

import (
	"encoding/json"
	"fmt"
	"os"

	"corePools/internal/model"
)

// Load reads a whitelist JSON file of shape {chain: {pool_id: symbol}}.
func Load(path string) (model.Whitelist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}
	return Parse(data)
}

// Parse decodes whitelist JSON. Pool ids and symbols are kept exactly as written.
func Parse(data []byte) (model.Whitelist, error) {
	var wl model.Whitelist
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse whitelist: %w", err)
	}
	if wl == nil {
		wl = model.Whitelist{}
	}

	for chain, entries := range wl {
		if chain == "" {
			return nil, fmt.Errorf("whitelist: empty chain name")
		}
		for id := range entries {
			if id == "" {
				return nil, fmt.Errorf("whitelist %s: empty pool id", chain)
			}
		}
	}
	return wl, nil
}
