package normalize

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infergate/internal/core"
	"infergate/internal/pkg/llmclient"
	"infergate/internal/providers"
	"infergate/internal/providers/groq"
	"infergate/internal/providers/huggingface"
)

const groqKey = "gsk_live_0123456789abcdef"

func response(status int, body string, headers ...string) Outcome {
	h := http.Header{}
	for i := 0; i+1 < len(headers); i += 2 {
		h.Set(headers[i], headers[i+1])
	}
	return Outcome{Response: &llmclient.Response{StatusCode: status, Header: h, Body: []byte(body)}}
}

func TestNormalize_Success(t *testing.T) {
	adapter := groq.New(providers.ProviderConfig{APIKey: groqKey})

	r := Normalize(adapter, response(200, `{"choices":[{"message":{"content":"Hello"}}]}`))

	assert.Equal(t, core.KindSuccess, r.Kind)
	assert.Equal(t, "Hello", r.Text)
	assert.Equal(t, "groq", r.Provider)
}

func TestNormalize_StatusMapping(t *testing.T) {
	adapter := groq.New(providers.ProviderConfig{APIKey: groqKey})
	longBody := strings.Repeat("e", 500)

	tests := []struct {
		name         string
		outcome      Outcome
		wantStatus   int
		wantCategory core.Category
		check        func(t *testing.T, r core.Result)
	}{
		{
			name:         "unauthorized names the env var",
			outcome:      response(401, `{"error":{"message":"Invalid API Key"}}`),
			wantStatus:   401,
			wantCategory: core.CategoryAuthentication,
			check: func(t *testing.T, r core.Result) {
				assert.Equal(t, "GROQ_API_KEY", r.Credential)
				assert.Contains(t, r.Message, "GROQ_API_KEY")
				assert.Contains(t, r.Message, "Invalid API Key")
				assert.NotContains(t, r.Message, groqKey)
			},
		},
		{
			name:         "forbidden",
			outcome:      response(403, ``),
			wantStatus:   403,
			wantCategory: core.CategoryAuthentication,
		},
		{
			name:         "rate limited keeps retry hint",
			outcome:      response(429, `{"error":{"message":"Rate limit reached"}}`, "Retry-After", "12"),
			wantStatus:   429,
			wantCategory: core.CategoryRateLimit,
			check: func(t *testing.T, r core.Result) {
				assert.Equal(t, "12", r.RetryAfter)
			},
		},
		{
			name:         "client error keeps body prefix",
			outcome:      response(400, longBody),
			wantStatus:   400,
			wantCategory: core.CategoryInvalidRequest,
			check: func(t *testing.T, r core.Result) {
				assert.Equal(t, strings.Repeat("e", core.DiagnosticLimit), r.Message)
			},
		},
		{
			name:         "server error",
			outcome:      response(503, `upstream overloaded`),
			wantStatus:   503,
			wantCategory: core.CategoryServerError,
			check: func(t *testing.T, r core.Result) {
				assert.Equal(t, "upstream overloaded", r.Message)
				assert.Equal(t, "Error 503 (server_error): upstream overloaded", r.String())
			},
		},
		{
			name:         "error body with success status",
			outcome:      response(200, `{"error":{"message":"no capacity"}}`),
			wantStatus:   200,
			wantCategory: core.CategoryProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(adapter, tt.outcome)
			require.Equal(t, core.KindProviderError, r.Kind)
			assert.Equal(t, tt.wantStatus, r.StatusCode)
			assert.Equal(t, tt.wantCategory, r.Category)
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestNormalize_MalformedSuccessBody(t *testing.T) {
	adapter := huggingface.New(providers.ProviderConfig{APIKey: "hf_live_123456"})

	r := Normalize(adapter, response(200, `<html>gateway page</html>`))

	assert.Equal(t, core.KindTransportError, r.Kind)
	assert.Equal(t, core.ReasonMalformedResponse, r.Reason)
	assert.Contains(t, r.Message, "<html>gateway page</html>")
}

func TestNormalize_TransportErrors(t *testing.T) {
	adapter := groq.New(providers.ProviderConfig{APIKey: groqKey})

	tests := []struct {
		name string
		err  error
		want core.Reason
	}{
		{"unreachable", &llmclient.TransportError{Reason: core.ReasonUnreachable, Err: errors.New("connection refused")}, core.ReasonUnreachable},
		{"timed out", &llmclient.TransportError{Reason: core.ReasonTimedOut, Err: context.DeadlineExceeded}, core.ReasonTimedOut},
		{"canceled", &llmclient.TransportError{Reason: core.ReasonCanceled, Err: context.Canceled}, core.ReasonCanceled},
		{"foreign error", errors.New("boom"), core.ReasonUnreachable},
		{"no response", nil, core.ReasonUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(adapter, Outcome{Err: tt.err})
			assert.Equal(t, core.KindTransportError, r.Kind)
			assert.Equal(t, tt.want, r.Reason)
		})
	}
}

func TestNormalize_ScrubsEchoedCredential(t *testing.T) {
	adapter := groq.New(providers.ProviderConfig{APIKey: groqKey})

	r := Normalize(adapter, response(400, `{"error":"bad key `+groqKey+`"}`))

	assert.NotContains(t, r.Message, groqKey)
	assert.Contains(t, r.Message, "gsk_...")
}

type panickyAdapter struct {
	providers.Adapter
}

func (panickyAdapter) ExtractText([]byte) (string, error) { panic("bad adapter") }

func TestNormalize_RecoversFromAdapterPanic(t *testing.T) {
	adapter := panickyAdapter{Adapter: groq.New(providers.ProviderConfig{APIKey: groqKey})}

	r := Normalize(adapter, response(200, `{}`))

	assert.Equal(t, core.KindTransportError, r.Kind)
	assert.Equal(t, core.ReasonMalformedResponse, r.Reason)
}

func TestNormalize_ScrubsCredentialAtTruncationBoundary(t *testing.T) {
	adapter := groq.New(providers.ProviderConfig{APIKey: groqKey})
	// the key straddles the diagnostic cut
	padding := strings.Repeat("x", core.DiagnosticLimit-10)

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"client error", 400, `{"error":"` + padding + groqKey + `"}`},
		{"server error", 503, padding + groqKey},
		{"auth error", 401, `{"error":{"message":"` + padding + groqKey + `"}}`},
		{"malformed success", 200, padding + groqKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Normalize(adapter, response(tt.status, tt.body))
			assert.NotEqual(t, core.KindSuccess, r.Kind)
			assert.NotContains(t, r.Message, "gsk_live")
		})
	}
}

func TestNormalize_SuccessTextIsNotScrubbed(t *testing.T) {
	adapter := groq.New(providers.ProviderConfig{APIKey: groqKey})

	r := Normalize(adapter, response(200, `{"choices":[{"message":{"content":"your key is `+groqKey+`"}}]}`))

	assert.Equal(t, core.KindSuccess, r.Kind)
	assert.Equal(t, "your key is "+groqKey, r.Text)
}
