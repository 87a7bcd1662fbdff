// Package observability exports gateway activity as Prometheus metrics.
package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"infergate/internal/core"
	"infergate/internal/gateway"
	"infergate/internal/pkg/llmclient"
)

// Metrics holds the gateway's collectors.
type Metrics struct {
	Calls            *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	Attempts         *prometheus.CounterVec
	Fallbacks        prometheus.Counter
	Exchanges        *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them through promhttp.Handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infergate_calls_total",
				Help: "Gateway calls by terminal result kind.",
			},
			[]string{"kind", "provider"},
		),
		CallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infergate_call_duration_seconds",
				Help:    "End-to-end gateway call latency in seconds, across all attempts.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		Attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infergate_provider_attempts_total",
				Help: "Per-provider attempts by outcome. Outcome is the result kind refined by category or reason.",
			},
			[]string{"provider", "outcome", "sent"},
		),
		Fallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "infergate_fallback_successes_total",
				Help: "Successful calls that were served by a provider other than the first in the chain.",
			},
		),
		Exchanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infergate_upstream_requests_total",
				Help: "HTTP exchanges with providers by status code; 0 means no response.",
			},
			[]string{"provider", "status"},
		),
		ExchangeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infergate_upstream_request_duration_seconds",
				Help:    "Provider HTTP exchange latency in seconds.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
		InFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "infergate_upstream_requests_in_flight",
				Help: "Provider HTTP exchanges currently in flight.",
			},
			[]string{"provider"},
		),
	}
}

// Outcome is the metric label for a result: the kind, refined by category or reason.
func Outcome(r core.Result) string {
	switch {
	case r.Category != "":
		return string(r.Kind) + ":" + string(r.Category)
	case r.Reason != "":
		return string(r.Kind) + ":" + string(r.Reason)
	default:
		return string(r.Kind)
	}
}

// GatewayHooks records attempts and calls.
func (m *Metrics) GatewayHooks() gateway.Hooks {
	return gateway.Hooks{
		OnAttempt: func(_ context.Context, info gateway.AttemptInfo) {
			m.Attempts.WithLabelValues(info.Provider, Outcome(info.Result), strconv.FormatBool(info.Sent)).Inc()
		},
		OnComplete: func(_ context.Context, s gateway.CallSummary) {
			m.Calls.WithLabelValues(string(s.Result.Kind), s.Result.Provider).Inc()
			m.CallDuration.WithLabelValues(string(s.Result.Kind)).Observe(s.Duration.Seconds())
			if s.Result.IsSuccess() && len(s.Result.Failures) > 0 {
				m.Fallbacks.Inc()
			}
		},
	}
}

// ExchangeHooks records every HTTP exchange.
func (m *Metrics) ExchangeHooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestStart: func(ctx context.Context, info llmclient.RequestInfo) context.Context {
			m.InFlight.WithLabelValues(info.Provider).Inc()
			return ctx
		},
		OnRequestEnd: func(_ context.Context, info llmclient.ResponseInfo) {
			m.InFlight.WithLabelValues(info.Provider).Dec()
			m.Exchanges.WithLabelValues(info.Provider, strconv.Itoa(info.StatusCode)).Inc()
			m.ExchangeDuration.WithLabelValues(info.Provider).Observe(info.Duration.Seconds())
		},
	}
}
