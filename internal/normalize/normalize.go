// Package normalize maps the raw outcome of one provider exchange onto a core.Result.
package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"infergate/internal/core"
	"infergate/internal/pkg/llmclient"
	"infergate/internal/providers"
)

// Outcome is what a single exchange produced: a response, or a transport error.
type Outcome struct {
	Response *llmclient.Response
	Err      error
}

// Normalize classifies an outcome. It never panics and never returns a result
// containing the provider's credential.
func Normalize(adapter providers.Adapter, outcome Outcome) core.Result {
	key := strings.TrimSpace(adapter.Config().APIKey)
	result := normalize(adapter, outcome, key)
	result.Provider = adapter.Name()
	result.Message = scrub(result.Message, key)
	return result
}

// normalize classifies the outcome. Diagnostics are cut from a body that has
// already had key masked, so truncation cannot leave part of it behind.
func normalize(adapter providers.Adapter, outcome Outcome, key string) core.Result {
	if outcome.Err != nil || outcome.Response == nil {
		return transportResult(outcome.Err)
	}

	resp := outcome.Response
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return extract(adapter, resp, key)
	}

	body := scrubBody(resp.Body, key)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return authResult(adapter, resp.StatusCode, body)
	case resp.StatusCode == http.StatusTooManyRequests:
		r := core.ProviderFailure(resp.StatusCode, core.CategoryRateLimit, diagnostic(body))
		r.RetryAfter = strings.TrimSpace(resp.Header.Get("Retry-After"))
		return r
	case resp.StatusCode >= 500:
		return core.ProviderFailure(resp.StatusCode, core.CategoryServerError, diagnostic(body))
	case resp.StatusCode >= 400:
		return core.ProviderFailure(resp.StatusCode, core.CategoryInvalidRequest, diagnostic(body))
	default:
		return core.ProviderFailure(resp.StatusCode, core.CategoryProvider, diagnostic(body))
	}
}

func transportResult(err error) core.Result {
	if err == nil {
		return core.TransportFailure(core.ReasonUnreachable, "no response")
	}
	var tErr *llmclient.TransportError
	if errors.As(err, &tErr) {
		msg := ""
		if tErr.Err != nil {
			msg = core.Truncate(tErr.Err.Error())
		}
		return core.TransportFailure(tErr.Reason, msg)
	}
	return core.TransportFailure(core.ReasonUnreachable, core.Truncate(err.Error()))
}

func extract(adapter providers.Adapter, resp *llmclient.Response, key string) core.Result {
	text, err := safeExtract(adapter, resp.Body)
	if err == nil {
		return core.Success(text)
	}
	// rebuild the diagnostic from a masked body when the key was echoed back
	if scrubbed := scrubBody(resp.Body, key); !bytes.Equal(scrubbed, resp.Body) {
		if _, maskedErr := safeExtract(adapter, scrubbed); maskedErr != nil {
			err = maskedErr
		}
	}
	var respErr *providers.ResponseError
	if errors.As(err, &respErr) && !respErr.Malformed {
		return core.ProviderFailure(resp.StatusCode, core.CategoryProvider, respErr.Message)
	}
	return core.TransportFailure(core.ReasonMalformedResponse, core.Truncate(err.Error()))
}

// safeExtract keeps a misbehaving adapter from taking down the gateway call.
func safeExtract(adapter providers.Adapter, body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = providers.MalformedBody(body)
		}
	}()
	return adapter.ExtractText(body)
}

func authResult(adapter providers.Adapter, status int, body []byte) core.Result {
	env := adapter.CredentialEnv()
	msg := fmt.Sprintf("%s rejected the credential; check %s", adapter.Name(), env)
	if detail := providers.ErrorMessage(body); detail != "" {
		msg += ": " + detail
	}
	r := core.ProviderFailure(status, core.CategoryAuthentication, msg)
	r.Credential = env
	return r
}

// diagnostic keeps the start of the body verbatim, or names the status when the body is empty.
func diagnostic(body []byte) string {
	if strings.TrimSpace(string(body)) == "" {
		return "empty response body"
	}
	return core.Truncate(string(body))
}

func scrub(msg, key string) string {
	if key == "" || msg == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, providers.Mask(key))
}

func scrubBody(body []byte, key string) []byte {
	if key == "" || !bytes.Contains(body, []byte(key)) {
		return body
	}
	return bytes.ReplaceAll(body, []byte(key), []byte(providers.Mask(key)))
}
