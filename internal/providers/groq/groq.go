// Package groq provides Groq API integration for the inference gateway.
package groq

import (
	"infergate/internal/core"
	"infergate/internal/providers"
)

// Registration provides factory registration for the Groq provider.
var Registration = providers.Registration{
	Type: "groq",
	New:  New,
}

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	defaultModel   = "llama-3.3-70b-versatile"
)

var defaults = providers.ProviderConfig{
	Name:          "groq",
	Type:          "groq",
	BaseURL:       defaultBaseURL,
	DefaultModel:  defaultModel,
	AuthScheme:    providers.AuthBearer,
	CredentialEnv: "GROQ_API_KEY",
}

// Provider adapts the OpenAI-compatible Groq chat API.
type Provider struct {
	providers.Base
}

// New creates a Groq adapter. Keys beginning with the sample prefixes shipped in
// example env files count as unconfigured.
func New(cfg providers.ProviderConfig) providers.Adapter {
	return &Provider{Base: providers.NewBase(cfg, defaults, "YOUR", "gsk_YOUR")}
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
