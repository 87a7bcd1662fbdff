// Package ollama provides integration with a local Ollama server.
package ollama

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"infergate/internal/core"
	"infergate/internal/pkg/llmclient"
	"infergate/internal/providers"
)

// Registration provides factory registration for the Ollama provider.
var Registration = providers.Registration{
	Type: "ollama",
	New:  New,
}

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "mistral"
)

var defaults = providers.ProviderConfig{
	Name:          "ollama",
	Type:          "ollama",
	BaseURL:       defaultBaseURL,
	DefaultModel:  defaultModel,
	AuthScheme:    providers.AuthNone,
	CredentialEnv: "OLLAMA_BASE_URL",
}

// GenerateOptions maps gateway options onto Ollama's sampling options.
type GenerateOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// GenerateRequest is the /api/generate body. Streaming is always off.
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// Provider adapts Ollama's native generate API.
type Provider struct {
	providers.Base
}

// New creates an Ollama adapter. Ollama needs no credential, only a base URL.
// A configured API key is still sent as a bearer token for proxied deployments.
func New(cfg providers.ProviderConfig) providers.Adapter {
	if cfg.APIKey != "" && cfg.AuthScheme == "" {
		cfg.AuthScheme = providers.AuthBearer
	}
	p := &Provider{Base: providers.NewBase(cfg, defaults)}
	return p
}

// IsConfigured only requires a base URL.
func (p *Provider) IsConfigured() (bool, core.Reason) {
	if p.Config().BaseURL == "" {
		return false, core.ReasonMissingBaseURL
	}
	return true, ""
}

func (p *Provider) Shape() core.Shape { return core.ShapeCompletion }

// BuildRequest creates a non-streaming POST /api/generate request.
func (p *Provider) BuildRequest(prompt core.Prompt, opts core.Options) (*core.RequestSpec, error) {
	if err := providers.ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	model := p.Model(opts)
	if model == "" {
		return nil, core.NewConfigError(core.ReasonMissingModel, "no model specified and provider has no default")
	}
	opts = opts.Resolved()

	payload := GenerateRequest{
		Model:  model,
		Prompt: prompt.Text(),
		Stream: false,
		Options: GenerateOptions{
			NumPredict:  *opts.MaxTokens,
			Temperature: *opts.Temperature,
		},
	}
	return &core.RequestSpec{
		Shape:       core.ShapeCompletion,
		Method:      http.MethodPost,
		Endpoint:    "/api/generate",
		Model:       model,
		Prompt:      payload.Prompt,
		MaxTokens:   payload.Options.NumPredict,
		Temperature: payload.Options.Temperature,
		Stream:      false,
		Body:        payload,
	}, nil
}

// ExtractText reads the "response" field.
func (p *Provider) ExtractText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", providers.MalformedBody(body)
	}
	root := gjson.ParseBytes(body)
	if text := root.Get("response"); text.Exists() && text.Type == gjson.String {
		return text.String(), nil
	}
	if msg := providers.ErrorMessage(body); msg != "" {
		return "", &providers.ResponseError{Message: msg}
	}
	return "", providers.MalformedBody(body)
}

// ModelListRequest describes the GET /api/tags query.
func (p *Provider) ModelListRequest() llmclient.Request {
	return llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/tags",
	}
}

type tagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Size       int64     `json:"size"`
		Digest     string    `json:"digest"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

// ParseModelList decodes an /api/tags response.
func (p *Provider) ParseModelList(body []byte) ([]core.LocalModel, error) {
	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}
	models := make([]core.LocalModel, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, core.LocalModel{
			Name:       m.Name,
			Size:       m.Size,
			Digest:     m.Digest,
			ModifiedAt: m.ModifiedAt,
		})
	}
	return models, nil
}
