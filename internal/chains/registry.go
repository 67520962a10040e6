package chains

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var defaultRegistry []byte

const apiKeyPlaceholder = "{api_key}"

// ErrUnknownChain is returned when no endpoint is known for a chain.
var ErrUnknownChain = errors.New("unknown chain")

// Chain describes a supported network and its subgraph endpoint template.
type Chain struct {
	Name     string `yaml:"name"`
	ChainID  uint64 `yaml:"chain_id"`
	Subgraph string `yaml:"subgraph"`
}

type registryFile struct {
	Chains []Chain `yaml:"chains"`
}

// Registry resolves chain names to subgraph URLs.
type Registry struct {
	order  []string
	chains map[string]Chain
	apiKey string
}

// Default returns the registry embedded in the binary.
func Default() (*Registry, error) {
	return Parse(defaultRegistry)
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse chain registry: %w", err)
	}

	r := &Registry{chains: make(map[string]Chain, len(file.Chains))}
	for _, c := range file.Chains {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("chain registry: entry without name")
		}
		if _, dup := r.chains[name]; dup {
			return nil, fmt.Errorf("chain registry: duplicate chain %q", name)
		}
		c.Name = name
		r.chains[name] = c
		r.order = append(r.order, name)
	}
	return r, nil
}

// WithAPIKey sets the key substituted into {api_key} placeholders.
func (r *Registry) WithAPIKey(key string) *Registry {
	r.apiKey = key
	return r
}

// Override replaces or adds subgraph URLs. Keys are chain names.
func (r *Registry) Override(endpoints map[string]string) {
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		url := endpoints[name]
		c, ok := r.chains[name]
		if !ok {
			c = Chain{Name: name}
			r.order = append(r.order, name)
		}
		c.Subgraph = url
		r.chains[name] = c
	}
}

// Names returns chain names in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the chain entry by name.
func (r *Registry) Lookup(name string) (Chain, bool) {
	c, ok := r.chains[name]
	return c, ok
}

// Resolve returns the subgraph URL for a chain.
func (r *Registry) Resolve(name string) (string, error) {
	c, ok := r.chains[name]
	if !ok || c.Subgraph == "" {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownChain)
	}
	url := c.Subgraph
	if strings.Contains(url, apiKeyPlaceholder) {
		if r.apiKey == "" {
			return "", fmt.Errorf("%s: subgraph url requires an api key", name)
		}
		url = strings.ReplaceAll(url, apiKeyPlaceholder, r.apiKey)
	}
	return url, nil
}
