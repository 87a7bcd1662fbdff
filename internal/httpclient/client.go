// Package httpclient builds the shared outbound HTTP client used for every provider.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig holds transport tuning for provider calls.
type ClientConfig struct {
	// MaxIdleConnsPerHost bounds keep-alive connections to each provider host
	MaxIdleConnsPerHost int

	// IdleConnTimeout closes idle keep-alive connections after this long
	IdleConnTimeout time.Duration

	// Timeout is a hard ceiling on one exchange. Zero leaves the bound to the
	// per-attempt context deadline set by the gateway.
	Timeout time.Duration

	// DialTimeout bounds TCP connect, so a dead host surfaces as unreachable quickly
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers; zero disables it
	ResponseHeaderTimeout time.Duration
}

// DefaultConfig returns transport defaults suitable for LLM APIs: generation can
// take tens of seconds, so only connection setup gets tight limits.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// NewHTTPClient creates a new HTTP client with the provided configuration.
// If config is nil, DefaultConfig() is used.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConnsPerHost * 8,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}
