// Package gateway runs a prompt against an ordered fallback chain of providers
// and returns the first success or the complete failure trail.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"infergate/internal/cache"
	"infergate/internal/core"
	"infergate/internal/pkg/llmclient"
	"infergate/internal/normalize"
	"infergate/internal/providers"
)

// Config holds gateway client settings. Zero values fall back to package defaults.
type Config struct {
	// HTTPClient is shared by every provider exchange
	HTTPClient *http.Client

	// ExchangeHooks observe individual HTTP exchanges
	ExchangeHooks llmclient.Hooks

	// Hooks observe attempts and whole calls
	Hooks Hooks

	// DefaultChain is used by callers that do not name a chain
	DefaultChain core.FallbackChain

	// Defaults fill request options the caller leaves unset
	Defaults core.Options

	// ModelCache stores local model listings; nil disables caching
	ModelCache cache.Cache
}

// Client is the gateway. It is safe for concurrent use; calls share no mutable state.
type Client struct {
	registry *providers.Registry
	clients  map[string]*llmclient.Client
	hooks    Hooks
	chain    core.FallbackChain
	defaults core.Options
	cache    cache.Cache
	now      func() time.Time
}

// New creates a gateway over the given provider registry.
func New(registry *providers.Registry, cfg Config) *Client {
	c := &Client{
		registry: registry,
		clients:  make(map[string]*llmclient.Client, registry.Len()),
		hooks:    cfg.Hooks,
		chain:    cfg.DefaultChain.Normalized(),
		defaults: cfg.Defaults,
		cache:    cfg.ModelCache,
		now:      time.Now,
	}

	for _, name := range registry.Names() {
		adapter, _ := registry.Get(name)
		clientCfg := llmclient.DefaultConfig(name, adapter.Config().BaseURL)
		clientCfg.Hooks = cfg.ExchangeHooks
		c.clients[name] = llmclient.New(cfg.HTTPClient, clientCfg, adapter.SetHeaders)
	}

	return c
}

// DefaultChain returns the configured fallback order.
func (c *Client) DefaultChain() core.FallbackChain {
	out := make(core.FallbackChain, len(c.chain))
	copy(out, c.chain)
	return out
}

// Registry exposes the provider table for status reporting.
func (c *Client) Registry() *providers.Registry {
	return c.registry
}

// withDefaults fills unset options from the client defaults, then package defaults.
func (c *Client) withDefaults(opts core.Options) core.Options {
	if opts.MaxTokens == nil {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	if opts.Temperature == nil {
		opts.Temperature = c.defaults.Temperature
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.defaults.Timeout
	}
	return opts.Resolved()
}

// Complete runs prompt against chain in order. Each provider is tried at most
// once under its own timeout; the first success is returned. Unconfigured and
// unknown providers are recorded and skipped without any network call.
//
// The returned Result is a success carrying the failures of earlier providers,
// a config_error when no provider could be attempted, or exhausted with every
// failure in chain order. Canceling ctx stops the pass and returns exhausted
// with Canceled set.
func (c *Client) Complete(ctx context.Context, prompt core.Prompt, opts core.Options, chain core.FallbackChain) core.Result {
	requestID := core.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = core.WithRequestID(ctx, requestID)
	}

	started := c.now()
	chain = chain.Normalized()
	call := &callState{requestID: requestID, chain: chain, started: started}

	result := c.run(ctx, call, prompt, c.withDefaults(opts))
	result.RequestID = requestID
	call.duration = c.now().Sub(started)

	slog.Debug("gateway call finished",
		"request_id", requestID,
		"chain", chain.String(),
		"kind", result.Kind,
		"provider", result.Provider,
		"failures", len(result.Failures),
		"duration", call.duration,
	)
	c.hooks.complete(ctx, call.summary(result))
	return result
}

func (c *Client) run(ctx context.Context, call *callState, prompt core.Prompt, opts core.Options) core.Result {
	if len(call.chain) == 0 {
		return core.ConfigFailure(core.ReasonEmptyChain, "fallback chain is empty")
	}
	if prompt.IsEmpty() {
		return core.ConfigFailure(core.ReasonInvalidPrompt, "prompt is empty")
	}

	var failures []core.Failure
	for _, name := range call.chain {
		if ctx.Err() != nil {
			return canceled(failures)
		}

		result, sent := c.attempt(ctx, call, name, prompt, opts)
		if result.IsSuccess() {
			result.Failures = failures
			return result
		}

		failures = append(failures, core.Failure{Provider: name, Result: result})
		if sent && ctx.Err() != nil {
			return canceled(failures)
		}

		slog.Info("provider failed, advancing",
			"request_id", call.requestID,
			"provider", name,
			"kind", result.Kind,
			"detail", result.String(),
		)
	}

	return exhausted(failures)
}

// attempt performs at most one exchange with one provider. sent reports whether
// a request went out.
func (c *Client) attempt(ctx context.Context, call *callState, name string, prompt core.Prompt, opts core.Options) (result core.Result, sent bool) {
	start := c.now()
	defer func() {
		c.hooks.attempt(ctx, AttemptInfo{
			RequestID: call.requestID,
			Provider:  name,
			Model:     result.Model,
			Result:    result,
			Sent:      sent,
			Duration:  c.now().Sub(start),
		})
		call.attempts = append(call.attempts, Attempt{
			Provider: name,
			Model:    result.Model,
			Kind:     result.Kind,
			Sent:     sent,
			Duration: c.now().Sub(start),
		})
	}()

	adapter, ok := c.registry.Get(name)
	if !ok {
		r := core.ConfigFailure(core.ReasonUnknownProvider, fmt.Sprintf("no provider named %q", name))
		r.Provider = name
		return r, false
	}
	if ok, reason := adapter.IsConfigured(); !ok {
		r := core.ConfigFailure(reason, fmt.Sprintf("%s is not configured; set %s", name, adapter.CredentialEnv()))
		r.Provider = name
		return r, false
	}

	spec, err := adapter.BuildRequest(prompt, opts)
	if err != nil {
		r := buildFailure(err)
		r.Provider = name
		return r, false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	resp, err := c.clients[name].Exchange(attemptCtx, llmclient.Request{
		Method:   spec.Method,
		Endpoint: spec.Endpoint,
		Body:     spec.Body,
		Headers:  spec.Headers,
		Model:    spec.Model,
	})

	result = normalize.Normalize(adapter, normalize.Outcome{Response: resp, Err: err})
	result.Model = spec.Model
	return result, true
}

func buildFailure(err error) core.Result {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) && gwErr.Reason != "" {
		return core.ConfigFailure(gwErr.Reason, gwErr.Message)
	}
	return core.ConfigFailure(core.ReasonInvalidPrompt, err.Error())
}

func canceled(failures []core.Failure) core.Result {
	return core.Result{Kind: core.KindExhausted, Canceled: true, Failures: failures}
}

// exhausted builds the terminal failure. When nothing was ever sent because every
// provider was misconfigured, the call is a configuration error.
func exhausted(failures []core.Failure) core.Result {
	allConfig := len(failures) > 0
	for _, f := range failures {
		if f.Result.Kind != core.KindConfigError {
			allConfig = false
			break
		}
	}
	if !allConfig {
		return core.Result{Kind: core.KindExhausted, Failures: failures}
	}

	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Provider+" ("+string(f.Result.Reason)+")")
	}
	r := core.ConfigFailure(failures[0].Result.Reason, "no usable provider in chain: "+strings.Join(names, ", "))
	r.Failures = failures
	return r
}
