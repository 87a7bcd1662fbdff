// Package together provides Together AI integration for the inference gateway.
package together

import (
	"infergate/internal/core"
	"infergate/internal/providers"
)

// Registration provides factory registration for the Together AI provider.
var Registration = providers.Registration{
	Type: "together",
	New:  New,
}

const (
	defaultBaseURL = "https://api.together.xyz/v1"
	defaultModel   = "mistralai/Mistral-7B-Instruct-v0.2"
)

var defaults = providers.ProviderConfig{
	Name:          "together",
	Type:          "together",
	BaseURL:       defaultBaseURL,
	DefaultModel:  defaultModel,
	AuthScheme:    providers.AuthBearer,
	CredentialEnv: "TOGETHER_API_KEY",
}

// Provider adapts the Together AI chat completions API
type Provider struct {
	providers.Base
}

// New creates a Together AI adapter.
func New(cfg providers.ProviderConfig) providers.Adapter {
	return &Provider{Base: providers.NewBase(cfg, defaults, "YOUR")}
}

func (p *Provider) Shape() core.Shape { return core.ShapeChat }

func (p *Provider) BuildRequest(prompt core.Prompt, opts core.Options) (*core.RequestSpec, error) {
	return providers.BuildChatRequest(p.Model(opts), prompt, opts)
}

func (p *Provider) ExtractText(body []byte) (string, error) {
	return providers.ExtractChatText(body)
}
