package cli

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"infergate/internal/core"
	"infergate/internal/providers"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		kind core.Kind
		want int
	}{
		{core.KindSuccess, ExitSuccess},
		{core.KindConfigError, ExitConfig},
		{core.KindExhausted, ExitExhausted},
		{core.KindProviderError, ExitExhausted},
		{core.KindTransportError, ExitExhausted},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(core.Result{Kind: tt.kind}))
		})
	}
}

func TestRenderResult_SuccessAfterFallback(t *testing.T) {
	var out, diag bytes.Buffer
	r := core.Success("hello")
	r.Provider = "groq"
	r.Model = "llama-3.1-8b-instant"
	failed := core.ProviderFailure(429, core.CategoryRateLimit, "slow down")
	failed.RetryAfter = "12"
	r.Failures = []core.Failure{{Provider: "openrouter", Result: failed}}

	RenderResult(&out, &diag, r)

	assert.Equal(t, "hello\n", out.String())
	assert.Contains(t, diag.String(), "[openrouter] Error 429")
	assert.Contains(t, diag.String(), "slow down")
	assert.Contains(t, diag.String(), "retry after 12")
	assert.Contains(t, diag.String(), " groq ")
	assert.Contains(t, diag.String(), "llama-3.1-8b-instant")
}

func TestRenderResult_Exhausted(t *testing.T) {
	var out, diag bytes.Buffer
	r := core.Result{Kind: core.KindExhausted, Failures: []core.Failure{
		{Provider: "ollama", Result: core.TransportFailure(core.ReasonUnreachable, "connection refused")},
	}}

	RenderResult(&out, &diag, r)

	assert.Empty(t, out.String())
	assert.Contains(t, diag.String(), "[ollama] unreachable: connection refused")
	assert.Contains(t, diag.String(), "ALL PROVIDERS FAILED")
}

func TestRenderResult_Canceled(t *testing.T) {
	var out, diag bytes.Buffer
	RenderResult(&out, &diag, core.Result{Kind: core.KindExhausted, Canceled: true})
	assert.Contains(t, diag.String(), "CANCELED")
}

func TestRenderResult_ConfigError(t *testing.T) {
	var out, diag bytes.Buffer
	RenderResult(&out, &diag, core.ConfigFailure(core.ReasonEmptyChain, "fallback chain is empty"))
	assert.Contains(t, diag.String(), "CONFIG")
	assert.Contains(t, diag.String(), "fallback chain is empty")
}

func TestRenderStatus(t *testing.T) {
	var buf bytes.Buffer
	RenderStatus(&buf, core.FallbackChain{"groq", "together"}, []providers.Status{
		{Name: "groq", Configured: true, Credential: "gsk_...", BaseURL: "https://api.groq.com/openai/v1"},
		{Name: "together", Reason: "missing_credential", CredentialEnv: "TOGETHER_API_KEY"},
	})

	s := buf.String()
	assert.Contains(t, s, "Fallback chain: groq")
	assert.Contains(t, s, "✓ groq")
	assert.Contains(t, s, "gsk_...")
	assert.Contains(t, s, "✗ together")
	assert.Contains(t, s, "missing_credential; set TOGETHER_API_KEY")
	assert.NotContains(t, s, "gsk_live")
}

func TestRenderModels(t *testing.T) {
	var buf bytes.Buffer
	RenderModels(&buf, "ollama", []core.LocalModel{
		{Name: "llama3:8b", Size: 4_661_224_676},
		{Name: "tiny"},
	})
	assert.Contains(t, buf.String(), "- llama3:8b (4.3 GB)")
	assert.Contains(t, buf.String(), "- tiny\n")

	buf.Reset()
	RenderModels(&buf, "ollama", nil)
	assert.Contains(t, buf.String(), "no models available from ollama")
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "1.0 MB", humanSize(1<<20))
}

func TestJoinPrompt(t *testing.T) {
	assert.Equal(t, "why is the sky blue", JoinPrompt([]string{"why", "is", "the sky", "blue "}))
	assert.Empty(t, JoinPrompt(nil))
}
