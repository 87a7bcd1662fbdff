package llmclient

import (
	"context"
	"time"
)

// RequestInfo describes an exchange about to start.
type RequestInfo struct {
	Provider string
	Model    string
	Endpoint string
	Method   string
}

// ResponseInfo describes a finished exchange. StatusCode is zero when Error is set.
type ResponseInfo struct {
	Provider   string
	Model      string
	Endpoint   string
	StatusCode int
	Duration   time.Duration
	Error      error
}

// Hooks lets observability code watch provider exchanges without the client
// depending on any metrics library. Nil functions are skipped.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info ResponseInfo)
}
