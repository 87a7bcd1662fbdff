package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces any credential-shaped value in log output.
const Redacted = "[REDACTED]"

// secretPatterns match the key formats of the supported providers plus generic bearer tokens.
var secretPatterns = []*regexp.Regexp{
	// OpenRouter: sk-or-v1-...
	regexp.MustCompile(`sk-or-v1-[A-Za-z0-9]{16,}`),
	// Generic OpenAI-style: sk-...
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	// Groq: gsk_...
	regexp.MustCompile(`gsk_[A-Za-z0-9]{16,}`),
	// Hugging Face: hf_...
	regexp.MustCompile(`hf_[A-Za-z0-9]{16,}`),
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/-]{16,}=*`),
	// Long opaque strings (Together keys are 64 hex characters)
	regexp.MustCompile(`[A-Za-z0-9_-]{40,}`),
}

// sensitiveKeys are attribute keys whose values are never logged.
var sensitiveKeys = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"secret",
	"password",
	"token",
	"master_key",
}

// Redact replaces credential-shaped substrings of s.
func Redact(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, Redacted)
	}
	return s
}

// RedactingHandler wraps an slog.Handler and scrubs credentials from messages and attributes.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler wraps inner.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		switch val := v.Any().(type) {
		case error:
			return slog.String(a.Key, Redact(val.Error()))
		case []string:
			out := make([]string, len(val))
			for i, s := range val {
				out[i] = Redact(s)
			}
			return slog.Any(a.Key, out)
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
