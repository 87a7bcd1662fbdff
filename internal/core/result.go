package core

import (
	"fmt"
	"strings"
)

// Kind tags which variant of Result is populated.
type Kind string

const (
	KindSuccess        Kind = "success"
	KindProviderError  Kind = "provider_error"
	KindTransportError Kind = "transport_error"
	KindConfigError    Kind = "config_error"
	// KindExhausted is the gateway's terminal failure: every provider in the chain failed.
	KindExhausted Kind = "exhausted"
)

// Category refines a provider error by what the provider rejected.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryRateLimit      Category = "rate_limit"
	CategoryInvalidRequest Category = "invalid_request"
	CategoryServerError    Category = "server_error"
	// CategoryProvider covers error bodies delivered with a success status.
	CategoryProvider Category = "provider_error"
)

// Reason is a stable code for transport and configuration failures.
type Reason string

const (
	ReasonUnreachable       Reason = "unreachable"
	ReasonTimedOut          Reason = "timed_out"
	ReasonCanceled          Reason = "canceled"
	ReasonMalformedResponse Reason = "malformed_response"

	ReasonMissingCredential     Reason = "missing_credential"
	ReasonPlaceholderCredential Reason = "placeholder_credential"
	ReasonMissingBaseURL        Reason = "missing_base_url"
	ReasonMissingModel          Reason = "missing_model"
	ReasonUnknownProvider       Reason = "unknown_provider"
	ReasonEmptyChain            Reason = "empty_chain"
	ReasonInvalidPrompt         Reason = "invalid_prompt"
)

// DiagnosticLimit is how many characters of a raw body are kept for diagnosis.
const DiagnosticLimit = 200

// Result is the normalized outcome of an inference attempt or of a whole gateway call.
// Exactly one variant, selected by Kind, is meaningful:
//   - success: Text
//   - provider_error: StatusCode, Category, Message, Credential, RetryAfter
//   - transport_error: Reason, Message
//   - config_error: Reason, Message
//   - exhausted: Failures (also Canceled)
//
// Failures is the per-provider trail of a gateway call and may accompany any kind.
type Result struct {
	Kind       Kind      `json:"kind"`
	Provider   string    `json:"provider,omitempty"`
	Model      string    `json:"model,omitempty"`
	Text       string    `json:"text,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Category   Category  `json:"category,omitempty"`
	Credential string    `json:"credential,omitempty"`
	RetryAfter string    `json:"retry_after,omitempty"`
	Reason     Reason    `json:"reason,omitempty"`
	Message    string    `json:"message,omitempty"`
	Canceled   bool      `json:"canceled,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Failures   []Failure `json:"failures,omitempty"`
}

// Failure records why one provider in a fallback chain did not produce a result.
type Failure struct {
	Provider string `json:"provider"`
	Result   Result `json:"result"`
}

// Success creates a success result.
func Success(text string) Result {
	return Result{Kind: KindSuccess, Text: text}
}

// ProviderFailure creates a provider error result.
func ProviderFailure(statusCode int, category Category, message string) Result {
	return Result{Kind: KindProviderError, StatusCode: statusCode, Category: category, Message: message}
}

// TransportFailure creates a transport error result.
func TransportFailure(reason Reason, message string) Result {
	return Result{Kind: KindTransportError, Reason: reason, Message: message}
}

// ConfigFailure creates a configuration error result.
func ConfigFailure(reason Reason, message string) Result {
	return Result{Kind: KindConfigError, Reason: reason, Message: message}
}

// IsSuccess reports whether the result carries completion text.
func (r Result) IsSuccess() bool {
	return r.Kind == KindSuccess
}

// String renders the result for humans.
func (r Result) String() string {
	switch r.Kind {
	case KindSuccess:
		return r.Text
	case KindProviderError:
		s := fmt.Sprintf("Error %d", r.StatusCode)
		if r.Category != "" {
			s += " (" + string(r.Category) + ")"
		}
		if r.Message != "" {
			s += ": " + r.Message
		}
		return s
	case KindTransportError, KindConfigError:
		if r.Message == "" {
			return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
		}
		return fmt.Sprintf("%s: %s: %s", r.Kind, r.Reason, r.Message)
	case KindExhausted:
		parts := make([]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			parts = append(parts, f.Provider+": "+f.Result.String())
		}
		prefix := "all providers failed"
		if r.Canceled {
			prefix = "canceled"
		}
		if len(parts) == 0 {
			return prefix
		}
		return prefix + ": " + strings.Join(parts, "; ")
	default:
		return string(r.Kind)
	}
}

// Truncate returns at most DiagnosticLimit characters of s.
func Truncate(s string) string {
	if len(s) <= DiagnosticLimit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= DiagnosticLimit {
		return s
	}
	return string(runes[:DiagnosticLimit])
}
