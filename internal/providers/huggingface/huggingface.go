// Package huggingface provides Hugging Face router integration for the inference gateway.
// The router speaks the raw text-generation shape: a single prompt string in
// "inputs" plus generation "parameters", answered with a list of generations.
package huggingface

import (
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"infergate/internal/core"
	"infergate/internal/providers"
)

// Registration provides factory registration for the Hugging Face provider.
var Registration = providers.Registration{
	Type: "huggingface",
	New:  New,
}

const (
	defaultBaseURL = "https://router.huggingface.co"
	defaultModel   = "mistralai/Mistral-7B-Instruct-v0.3"
)

var defaults = providers.ProviderConfig{
	Name:          "huggingface",
	Type:          "huggingface",
	BaseURL:       defaultBaseURL,
	DefaultModel:  defaultModel,
	AuthScheme:    providers.AuthBearer,
	CredentialEnv: "HF_API_KEY",
}

// Parameters are the text-generation knobs sent with each request.
type Parameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

// Payload is the text-generation request body.
type Payload struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

// Provider adapts the Hugging Face router text-generation API.
type Provider struct {
	providers.Base
}

// New creates a Hugging Face adapter. "hf_hispn" is the truncated sample token
// that circulated in early setup notes and is treated like any other placeholder.
func New(cfg providers.ProviderConfig) providers.Adapter {
	return &Provider{Base: providers.NewBase(cfg, defaults, "hf_YOUR", "hf_hispn")}
}

// Shape reports the raw completion payload family.
func (p *Provider) Shape() core.Shape { return core.ShapeCompletion }

// BuildRequest creates a POST /models/{model} request. Structured prompts are
// flattened to text.
func (p *Provider) BuildRequest(prompt core.Prompt, opts core.Options) (*core.RequestSpec, error) {
	if err := providers.ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	model := p.Model(opts)
	if model == "" {
		return nil, core.NewConfigError(core.ReasonMissingModel, "no model specified and provider has no default")
	}
	opts = opts.Resolved()

	payload := Payload{
		Inputs: prompt.Text(),
		Parameters: Parameters{
			MaxNewTokens: *opts.MaxTokens,
			Temperature:  *opts.Temperature,
		},
	}
	return &core.RequestSpec{
		Shape:       core.ShapeCompletion,
		Method:      http.MethodPost,
		Endpoint:    "/models/" + model,
		Model:       model,
		Prompt:      payload.Inputs,
		MaxTokens:   payload.Parameters.MaxNewTokens,
		Temperature: payload.Parameters.Temperature,
		Body:        payload,
	}, nil
}

// ExtractText reads [0].generated_text, or generated_text on a single object.
// An "error" object becomes a provider error. Any other JSON document is a task
// specific answer (summaries, labels, router chat) and is returned raw.
func (p *Provider) ExtractText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", providers.MalformedBody(body)
	}
	root := gjson.ParseBytes(body)

	switch {
	case root.IsArray():
		if text := root.Get("0.generated_text"); text.Exists() {
			return text.String(), nil
		}
	case root.IsObject():
		if text := root.Get("generated_text"); text.Exists() {
			return text.String(), nil
		}
	}
	if msg := providers.ErrorMessage(body); msg != "" {
		return "", &providers.ResponseError{Message: msg}
	}
	return strings.TrimSpace(root.Raw), nil
}
