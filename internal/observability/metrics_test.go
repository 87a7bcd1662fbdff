package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"infergate/internal/core"
	"infergate/internal/gateway"
	"infergate/internal/pkg/llmclient"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		result core.Result
		want   string
	}{
		{core.Success("x"), "success"},
		{core.ProviderFailure(429, core.CategoryRateLimit, ""), "provider_error:rate_limit"},
		{core.TransportFailure(core.ReasonTimedOut, ""), "transport_error:timed_out"},
		{core.ConfigFailure(core.ReasonPlaceholderCredential, ""), "config_error:placeholder_credential"},
		{core.Result{Kind: core.KindExhausted}, "exhausted"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.result); got != tt.want {
			t.Errorf("Outcome(%+v) = %q, want %q", tt.result, got, tt.want)
		}
	}
}

func TestGatewayHooks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	hooks := m.GatewayHooks()
	ctx := context.Background()

	hooks.OnAttempt(ctx, gateway.AttemptInfo{Provider: "groq", Result: core.ConfigFailure(core.ReasonMissingCredential, "")})
	hooks.OnAttempt(ctx, gateway.AttemptInfo{Provider: "together", Result: core.Success("ok"), Sent: true})

	success := core.Success("ok")
	success.Provider = "together"
	success.Failures = []core.Failure{{Provider: "groq"}}
	hooks.OnComplete(ctx, gateway.CallSummary{Result: success, Duration: 300 * time.Millisecond})

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("groq", "config_error:missing_credential", "false")); got != 1 {
		t.Errorf("groq attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("together", "success", "true")); got != 1 {
		t.Errorf("together attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Calls.WithLabelValues("success", "together")); got != 1 {
		t.Errorf("calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}

func TestExchangeHooks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	hooks := m.ExchangeHooks()
	ctx := context.Background()

	ctx = hooks.OnRequestStart(ctx, llmclient.RequestInfo{Provider: "ollama"})
	if got := testutil.ToFloat64(m.InFlight.WithLabelValues("ollama")); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}

	hooks.OnRequestEnd(ctx, llmclient.ResponseInfo{Provider: "ollama", StatusCode: 200, Duration: time.Second})
	if got := testutil.ToFloat64(m.InFlight.WithLabelValues("ollama")); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.Exchanges.WithLabelValues("ollama", "200")); got != 1 {
		t.Errorf("exchanges = %v, want 1", got)
	}
}
