package providers

import (
	"net/http"
	"strings"

	"infergate/internal/core"
)

// Auth schemes supported by providers.
const (
	AuthBearer = "bearer"
	AuthNone   = "none"
)

// Base carries the behavior shared by every adapter: identity, credential
// checks and header construction. Provider packages embed it.
type Base struct {
	cfg          ProviderConfig
	placeholders []string
}

// NewBase fills unset fields of cfg from defaults and records the provider's
// known placeholder credential prefixes.
func NewBase(cfg ProviderConfig, defaults ProviderConfig, placeholders ...string) Base {
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Type == "" {
		cfg.Type = defaults.Type
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaults.AuthScheme
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaults.DefaultModel
	}
	if cfg.CredentialEnv == "" {
		cfg.CredentialEnv = defaults.CredentialEnv
	}

	headers := make(map[string]string, len(defaults.ExtraHeaders)+len(cfg.ExtraHeaders))
	for k, v := range defaults.ExtraHeaders {
		headers[k] = v
	}
	for k, v := range cfg.ExtraHeaders {
		headers[k] = v
	}
	cfg.ExtraHeaders = headers

	return Base{cfg: cfg, placeholders: placeholders}
}

// Name returns the provider name.
func (b *Base) Name() string { return b.cfg.Name }

// Config returns a copy of the effective configuration.
func (b *Base) Config() ProviderConfig {
	cfg := b.cfg
	cfg.ExtraHeaders = make(map[string]string, len(b.cfg.ExtraHeaders))
	for k, v := range b.cfg.ExtraHeaders {
		cfg.ExtraHeaders[k] = v
	}
	return cfg
}

// CredentialEnv returns where the credential is configured.
func (b *Base) CredentialEnv() string { return b.cfg.CredentialEnv }

// IsConfigured applies the placeholder rules: empty keys, unexpanded ${VAR}
// references, and the provider's distributed sample prefixes are all unconfigured.
// Providers without authentication only need a base URL.
func (b *Base) IsConfigured() (bool, core.Reason) {
	if b.cfg.BaseURL == "" {
		return false, core.ReasonMissingBaseURL
	}
	if b.cfg.AuthScheme == AuthNone {
		return true, ""
	}
	return CheckCredential(b.cfg.APIKey, b.placeholders...)
}

// CheckCredential reports whether key is a usable credential.
func CheckCredential(key string, placeholders ...string) (bool, core.Reason) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, core.ReasonMissingCredential
	}
	if strings.Contains(key, "${") {
		return false, core.ReasonPlaceholderCredential
	}
	for _, prefix := range placeholders {
		if strings.HasPrefix(key, prefix) {
			return false, core.ReasonPlaceholderCredential
		}
	}
	return true, ""
}

// SetHeaders sets the Authorization header for bearer providers and any extra headers.
func (b *Base) SetHeaders(req *http.Request) {
	if b.cfg.AuthScheme == AuthBearer && b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}
	for k, v := range b.cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}
}

// Model returns the model to use for a call: the caller's choice or the provider default.
func (b *Base) Model(opts core.Options) string {
	if opts.Model != "" {
		return opts.Model
	}
	return b.cfg.DefaultModel
}

// Mask returns a short non-sensitive prefix of a credential for diagnostics.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	runes := []rune(key)
	if len(runes) <= 8 {
		return "***"
	}
	return string(runes[:4]) + "..."
}
