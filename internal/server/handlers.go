// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"infergate/internal/attemptlog"
	"infergate/internal/core"
	"infergate/internal/providers"
)

// Gateway is what the handlers need from gateway.Client.
type Gateway interface {
	Complete(ctx context.Context, prompt core.Prompt, opts core.Options, chain core.FallbackChain) core.Result
	DefaultChain() core.FallbackChain
	ListLocalModels(ctx context.Context, provider string) ([]core.LocalModel, error)
	Registry() *providers.Registry
}

// DefaultLocalProvider is listed when /v1/local/models names no provider.
const DefaultLocalProvider = "ollama"

// Handler holds the HTTP handlers.
type Handler struct {
	gateway Gateway
	calls   attemptlog.Reader
}

// NewHandler creates handlers over gw. calls may be nil.
func NewHandler(gw Gateway, calls attemptlog.Reader) *Handler {
	return &Handler{gateway: gw, calls: calls}
}

// CompleteRequest is the body of POST /v1/complete. Exactly one of Prompt and
// Messages may be set. A missing chain uses the configured default; an
// explicit empty chain is a configuration error.
type CompleteRequest struct {
	Prompt         string         `json:"prompt,omitempty"`
	Messages       []core.Message `json:"messages,omitempty"`
	Model          string         `json:"model,omitempty"`
	MaxTokens      *int           `json:"max_tokens,omitempty"`
	Temperature    *float64       `json:"temperature,omitempty"`
	TimeoutSeconds float64        `json:"timeout_seconds,omitempty"`
	Chain          []string       `json:"chain"`
}

func (r *CompleteRequest) validate() error {
	if r.Prompt != "" && len(r.Messages) > 0 {
		return errors.New("set either prompt or messages, not both")
	}
	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return errors.New("max_tokens must be at least 1")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return errors.New("temperature must be between 0 and 2")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	for i, m := range r.Messages {
		if !core.IsKnownRole(m.Role) {
			return fmt.Errorf("messages[%d].role must be system, user or assistant, got %q", i, m.Role)
		}
	}
	return nil
}

func (r *CompleteRequest) prompt() core.Prompt {
	if len(r.Messages) > 0 {
		return core.MessagesPrompt(r.Messages)
	}
	return core.TextPrompt(r.Prompt)
}

func (r *CompleteRequest) options() core.Options {
	return core.Options{
		Model:       r.Model,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
		Timeout:     time.Duration(r.TimeoutSeconds * float64(time.Second)),
	}
}

// Complete handles POST /v1/complete. The body is the Result; the status is
// 200 on success, 400 for configuration errors and 502 otherwise.
func (h *Handler) Complete(c echo.Context) error {
	var req CompleteRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if err := req.validate(); err != nil {
		return handleError(c, core.NewInvalidRequestError(err.Error(), err))
	}

	chain := h.gateway.DefaultChain()
	if req.Chain != nil {
		chain = core.FallbackChain(req.Chain)
	}

	result := h.gateway.Complete(c.Request().Context(), req.prompt(), req.options(), chain)
	return c.JSON(resultStatus(result), result)
}

func resultStatus(r core.Result) int {
	switch r.Kind {
	case core.KindSuccess:
		return http.StatusOK
	case core.KindConfigError:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// ProvidersResponse is the body of GET /v1/providers.
type ProvidersResponse struct {
	DefaultChain core.FallbackChain `json:"default_chain"`
	Providers    []providers.Status `json:"providers"`
}

// Providers handles GET /v1/providers.
func (h *Handler) Providers(c echo.Context) error {
	return c.JSON(http.StatusOK, ProvidersResponse{
		DefaultChain: h.gateway.DefaultChain(),
		Providers:    h.gateway.Registry().Statuses(),
	})
}

// LocalModelsResponse is the body of GET /v1/local/models.
type LocalModelsResponse struct {
	Provider string            `json:"provider"`
	Models   []core.LocalModel `json:"models"`
}

// LocalModels handles GET /v1/local/models?provider=.
func (h *Handler) LocalModels(c echo.Context) error {
	provider := strings.TrimSpace(c.QueryParam("provider"))
	if provider == "" {
		provider = DefaultLocalProvider
	}

	models, err := h.gateway.ListLocalModels(c.Request().Context(), provider)
	if err != nil {
		return handleError(c, err)
	}
	if models == nil {
		models = []core.LocalModel{}
	}
	return c.JSON(http.StatusOK, LocalModelsResponse{Provider: provider, Models: models})
}

// Calls handles GET /v1/calls?limit=.
func (h *Handler) Calls(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return handleError(c, core.NewInvalidRequestError("limit must be a positive integer", err))
		}
		limit = n
	}

	entries, err := h.calls.Recent(c.Request().Context(), limit)
	if err != nil {
		return handleError(c, err)
	}
	if entries == nil {
		entries = []*attemptlog.Entry{}
	}
	return c.JSON(http.StatusOK, map[string]any{"calls": entries})
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts gateway errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
