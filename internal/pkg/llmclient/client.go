// Package llmclient performs single HTTP exchanges with LLM providers:
//   - JSON request marshaling with provider-supplied headers
//   - response body decoding (gzip, brotli) with a size cap
//   - classification of transport failures into stable reasons
//
// It deliberately does not retry. One exchange per provider per gateway call.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"infergate/internal/core"
)

// MaxResponseBytes caps how much of a provider response is read.
const MaxResponseBytes = 8 * 1024 * 1024

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for errors and hooks
	ProviderName string

	// BaseURL is the API base URL; request endpoints are appended to it
	BaseURL string

	// Hooks observe each exchange (metrics, tracing)
	Hooks Hooks
}

// DefaultConfig returns default client configuration
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
	}
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a new LLM client over a shared HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func New(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     interface{} // Will be JSON marshaled if not nil
	Headers  map[string]string
	// Model is reported to hooks only
	Model string
}

// Response represents a raw HTTP response; the status is not interpreted here
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Exchange sends exactly one request and returns the raw response whatever its
// status code. The returned error is non-nil only when no response was obtained,
// and is then always a *TransportError.
func (c *Client) Exchange(ctx context.Context, req Request) (*Response, error) {
	info := RequestInfo{
		Provider: c.config.ProviderName,
		Model:    req.Model,
		Endpoint: req.Endpoint,
		Method:   req.Method,
	}
	if c.config.Hooks.OnRequestStart != nil {
		ctx = c.config.Hooks.OnRequestStart(ctx, info)
	}

	start := time.Now()
	resp, err := c.exchange(ctx, req)

	if c.config.Hooks.OnRequestEnd != nil {
		end := ResponseInfo{
			Provider: info.Provider,
			Model:    info.Model,
			Endpoint: info.Endpoint,
			Duration: time.Since(start),
			Error:    err,
		}
		if resp != nil {
			end.StatusCode = resp.StatusCode
		}
		c.config.Hooks.OnRequestEnd(ctx, end)
	}

	return resp, err
}

func (c *Client) exchange(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, classify(ctx, err)
	}

	body, err := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, &TransportError{Reason: core.ReasonMalformedResponse, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &TransportError{Reason: core.ReasonMalformedResponse, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, &TransportError{Reason: core.ReasonUnreachable, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept-Encoding", "br, gzip")

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if requestID := core.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	return httpReq, nil
}
