package providers

import (
	"os"
	"strings"

	"infergate/config"
)

// ProviderConfig holds the fully resolved configuration of one provider.
// Values are fixed at startup and never mutated afterwards.
type ProviderConfig struct {
	Name          string            `yaml:"name"`
	Type          string            `yaml:"type"`
	BaseURL       string            `yaml:"base_url"`
	APIKey        string            `yaml:"api_key"`
	DefaultModel  string            `yaml:"default_model"`
	AuthScheme    string            `yaml:"auth_scheme"`
	ExtraHeaders  map[string]string `yaml:"headers"`
	CredentialEnv string            `yaml:"-"`
}

// knownProviderEnvs maps well-known provider names to their environment variables.
// Every entry is always resolved, configured or not, so that status reports and the
// gateway can tell "unconfigured" apart from "unknown".
var knownProviderEnvs = []struct {
	name         string
	providerType string
	apiKeyEnv    string
	baseURLEnv   string
	modelEnv     string
}{
	{"openrouter", "openrouter", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL", "OPENROUTER_MODEL"},
	{"together", "together", "TOGETHER_API_KEY", "TOGETHER_BASE_URL", "TOGETHER_MODEL"},
	{"groq", "groq", "GROQ_API_KEY", "GROQ_BASE_URL", "GROQ_MODEL"},
	{"huggingface", "huggingface", "HF_API_KEY", "HF_BASE_URL", "HF_MODEL"},
	{"ollama", "ollama", "", "OLLAMA_BASE_URL", "OLLAMA_MODEL"},
}

// credentialEnvFor returns the variable a provider's credential is read from.
func credentialEnvFor(name string) string {
	for _, kp := range knownProviderEnvs {
		if kp.name == name {
			if kp.apiKeyEnv == "" {
				return kp.baseURLEnv
			}
			return kp.apiKeyEnv
		}
	}
	return "providers." + name + ".api_key"
}

// ResolveProviders applies env var overrides to the raw YAML provider map and
// returns one ProviderConfig per provider name. Providers with empty or placeholder
// credentials are kept; adapters decide whether they are usable.
func ResolveProviders(raw map[string]config.RawProviderConfig) map[string]ProviderConfig {
	merged := applyProviderEnvVars(raw)
	result := make(map[string]ProviderConfig, len(merged))
	for name, r := range merged {
		result[name] = buildProviderConfig(name, r)
	}
	return result
}

// applyProviderEnvVars overlays well-known provider env vars onto the raw YAML map.
// Env var values always win over YAML values for the same provider name.
func applyProviderEnvVars(raw map[string]config.RawProviderConfig) map[string]config.RawProviderConfig {
	result := make(map[string]config.RawProviderConfig, len(raw)+len(knownProviderEnvs))
	for k, v := range raw {
		result[strings.ToLower(k)] = v
	}

	for _, kp := range knownProviderEnvs {
		existing, exists := result[kp.name]
		if !exists {
			existing = config.RawProviderConfig{Type: kp.providerType}
		}
		if existing.Type == "" {
			existing.Type = kp.providerType
		}
		if kp.apiKeyEnv != "" {
			if v := os.Getenv(kp.apiKeyEnv); v != "" {
				existing.APIKey = v
			}
		}
		if v := os.Getenv(kp.baseURLEnv); v != "" {
			existing.BaseURL = v
		}
		if v := os.Getenv(kp.modelEnv); v != "" {
			existing.DefaultModel = v
		}
		result[kp.name] = existing
	}

	return result
}

func buildProviderConfig(name string, raw config.RawProviderConfig) ProviderConfig {
	providerType := raw.Type
	if providerType == "" {
		providerType = name
	}
	headers := make(map[string]string, len(raw.Headers))
	for k, v := range raw.Headers {
		headers[k] = v
	}
	return ProviderConfig{
		Name:          name,
		Type:          providerType,
		BaseURL:       strings.TrimSpace(raw.BaseURL),
		APIKey:        strings.TrimSpace(raw.APIKey),
		DefaultModel:  strings.TrimSpace(raw.DefaultModel),
		ExtraHeaders:  headers,
		CredentialEnv: credentialEnvFor(name),
	}
}
