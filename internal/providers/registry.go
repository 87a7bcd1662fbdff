package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Registry is the immutable table of adapters keyed by provider name.
// It is built once at startup and read concurrently without locks.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

// NewRegistry builds a registry from adapters. Names must be unique.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := strings.ToLower(a.Name())
		if name == "" {
			return nil, fmt.Errorf("provider with empty name")
		}
		if _, dup := r.adapters[name]; dup {
			return nil, fmt.Errorf("duplicate provider name: %s", name)
		}
		r.adapters[name] = a
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// BuildRegistry creates one adapter per resolved config through the factory.
// Configs whose type has no registered builder are logged and skipped; the
// gateway then reports them as unknown providers.
func BuildRegistry(factory *ProviderFactory, configs map[string]ProviderConfig) (*Registry, error) {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	adapters := make([]Adapter, 0, len(configs))
	for _, name := range names {
		cfg := configs[name]
		adapter, err := factory.Create(cfg)
		if err != nil {
			slog.Warn("skipping provider", "provider", name, "type", cfg.Type, "error", err)
			continue
		}
		ok, reason := adapter.IsConfigured()
		slog.Debug("provider resolved",
			"provider", name,
			"configured", ok,
			"reason", reason,
			"masked", Mask(cfg.APIKey),
		)
		adapters = append(adapters, adapter)
	}
	return NewRegistry(adapters...)
}

// Get returns the adapter for a provider name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Names returns all provider names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of providers.
func (r *Registry) Len() int {
	return len(r.names)
}

// Status describes whether a provider is usable, without exposing its credential.
type Status struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Configured    bool   `json:"configured"`
	Reason        string `json:"reason,omitempty"`
	CredentialEnv string `json:"credential_env,omitempty"`
	Credential    string `json:"credential,omitempty"`
	BaseURL       string `json:"base_url"`
	DefaultModel  string `json:"default_model"`
}

// Statuses reports every provider's configuration state in name order.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.names))
	for _, name := range r.names {
		a := r.adapters[name]
		cfg := a.Config()
		ok, reason := a.IsConfigured()
		out = append(out, Status{
			Name:          name,
			Type:          cfg.Type,
			Configured:    ok,
			Reason:        string(reason),
			CredentialEnv: a.CredentialEnv(),
			Credential:    Mask(cfg.APIKey),
			BaseURL:       cfg.BaseURL,
			DefaultModel:  cfg.DefaultModel,
		})
	}
	return out
}
