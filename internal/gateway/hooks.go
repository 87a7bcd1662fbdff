package gateway

import (
	"context"
	"time"

	"infergate/internal/core"
)

// AttemptInfo describes one provider attempt after it finished.
type AttemptInfo struct {
	RequestID string
	Provider  string
	Model     string
	Result    core.Result
	// Sent is false when the attempt was short-circuited before any network call
	Sent     bool
	Duration time.Duration
}

// Attempt is the compact per-provider record kept in a CallSummary.
type Attempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model,omitempty"`
	Kind     core.Kind     `json:"kind"`
	Sent     bool          `json:"sent"`
	Duration time.Duration `json:"duration_ns"`
}

// CallSummary describes a finished Complete call.
type CallSummary struct {
	RequestID string
	Chain     core.FallbackChain
	Started   time.Time
	Duration  time.Duration
	Attempts  []Attempt
	Result    core.Result
}

// Hooks observe gateway activity. Nil functions are skipped. Hooks run on the
// calling goroutine and must not block.
type Hooks struct {
	OnAttempt  func(ctx context.Context, info AttemptInfo)
	OnComplete func(ctx context.Context, summary CallSummary)
}

// Combine returns hooks that call each of hs in order.
func Combine(hs ...Hooks) Hooks {
	return Hooks{
		OnAttempt: func(ctx context.Context, info AttemptInfo) {
			for _, h := range hs {
				if h.OnAttempt != nil {
					h.OnAttempt(ctx, info)
				}
			}
		},
		OnComplete: func(ctx context.Context, summary CallSummary) {
			for _, h := range hs {
				if h.OnComplete != nil {
					h.OnComplete(ctx, summary)
				}
			}
		},
	}
}

func (h Hooks) attempt(ctx context.Context, info AttemptInfo) {
	if h.OnAttempt != nil {
		h.OnAttempt(ctx, info)
	}
}

func (h Hooks) complete(ctx context.Context, summary CallSummary) {
	if h.OnComplete != nil {
		h.OnComplete(ctx, summary)
	}
}

// callState accumulates the bookkeeping of one Complete call.
type callState struct {
	requestID string
	chain     core.FallbackChain
	started   time.Time
	duration  time.Duration
	attempts  []Attempt
}

func (s *callState) summary(result core.Result) CallSummary {
	return CallSummary{
		RequestID: s.requestID,
		Chain:     s.chain,
		Started:   s.started,
		Duration:  s.duration,
		Attempts:  s.attempts,
		Result:    result,
	}
}
