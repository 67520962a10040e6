package model

// Source tells where a core pool entry came from.
type Source string

const (
	SourceQuery     Source = "query"
	SourceWhitelist Source = "whitelist"
)

// PoolRecord is a pool as returned by the subgraph. Only id and symbol are retained.
type PoolRecord struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}
