// Package providers defines the adapter contract every inference provider implements,
// plus the factory and registry that turn configuration into adapters.
package providers

import (
	"net/http"

	"infergate/internal/core"
	"infergate/internal/pkg/llmclient"
)

// Adapter translates between the gateway's uniform contract and one provider's
// wire format. Adapters perform no network I/O; the gateway owns the exchange.
type Adapter interface {
	// Name is the unique provider name used in fallback chains
	Name() string

	// Config returns the effective provider configuration with defaults applied
	Config() ProviderConfig

	// Shape reports which payload family the adapter speaks
	Shape() core.Shape

	// CredentialEnv names where the credential comes from, for remediation messages
	CredentialEnv() string

	// IsConfigured reports whether a request may be sent at all.
	// A false result must prevent any outbound call.
	IsConfigured() (bool, core.Reason)

	// BuildRequest creates a fresh provider request for one call
	BuildRequest(prompt core.Prompt, opts core.Options) (*core.RequestSpec, error)

	// ExtractText pulls completion text out of a 2xx response body. It is pure:
	// the same body always yields the same result. Failures are *ResponseError.
	ExtractText(body []byte) (string, error)

	// SetHeaders applies authentication and provider-specific headers
	SetHeaders(req *http.Request)
}

// ModelLister is implemented by adapters that can enumerate locally available models.
// Like the rest of the adapter it only describes the request and parses the reply.
type ModelLister interface {
	ModelListRequest() llmclient.Request
	ParseModelList(body []byte) ([]core.LocalModel, error)
}
