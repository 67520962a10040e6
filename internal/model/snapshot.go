package model

import "time"

// Snapshot is the merged result of a single run, handed to storage sinks.
type Snapshot struct {
	RunID     string
	CreatedAt time.Time
	Pools     CorePools
	// Whitelisted holds the ids per chain that were added from the whitelist.
	Whitelisted map[string][]string
}

// Source reports whether a pool in the snapshot came from the query or the whitelist.
func (s Snapshot) Source(chain, id string) Source {
	for _, added := range s.Whitelisted[chain] {
		if added == id {
			return SourceWhitelist
		}
	}
	return SourceQuery
}

// CountBySource returns the number of query and whitelist pools for a chain.
func (s Snapshot) CountBySource(chain string) (query int, whitelist int) {
	whitelist = len(s.Whitelisted[chain])
	query = len(s.Pools[chain]) - whitelist
	return query, whitelist
}
