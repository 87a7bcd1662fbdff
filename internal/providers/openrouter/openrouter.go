// Package openrouter provides OpenRouter integration for the inference gateway.
package openrouter

import (
	"infergate/internal/core"
	"infergate/internal/providers"
)

// Registration provides factory registration for the OpenRouter provider.
var Registration = providers.Registration{
	Type: "openrouter",
	New:  New,
}

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "mistralai/mistral-7b-instruct"
)

// OpenRouter uses these attribution headers to identify the calling application.
var defaults = providers.ProviderConfig{
	Name:          "openrouter",
	Type:          "openrouter",
	BaseURL:       defaultBaseURL,
	DefaultModel:  defaultModel,
	AuthScheme:    providers.AuthBearer,
	CredentialEnv: "OPENROUTER_API_KEY",
	ExtraHeaders: map[string]string{
		"HTTP-Referer": "https://github.com",
		"X-Title":      "HF-API-Test",
	},
}

// Provider adapts the OpenRouter chat completions API.
type Provider struct {
	providers.Base
}

// New creates an OpenRouter adapter. Configured headers override the attribution defaults.
func New(cfg providers.ProviderConfig) providers.Adapter {
	return &Provider{Base: providers.NewBase(cfg, defaults, "sk-or-v1-YOUR")}
}

// Shape reports the chat payload family.
func (p *Provider) Shape() core.Shape { return core.ShapeChat }

// BuildRequest creates a /chat/completions request.
func (p *Provider) BuildRequest(prompt core.Prompt, opts core.Options) (*core.RequestSpec, error) {
	return providers.BuildChatRequest(p.Model(opts), prompt, opts)
}

// ExtractText reads choices[0].message.content.
func (p *Provider) ExtractText(body []byte) (string, error) {
	return providers.ExtractChatText(body)
}
