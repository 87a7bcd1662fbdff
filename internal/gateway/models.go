package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"infergate/internal/cache"
	"infergate/internal/core"
	"infergate/internal/providers"
)

// ModelListTimeout bounds a model listing query.
const ModelListTimeout = 10 * time.Second

// ListLocalModels returns the models available from a locally reachable provider.
// It is a read-only side query and never takes part in a fallback chain.
func (c *Client) ListLocalModels(ctx context.Context, provider string) ([]core.LocalModel, error) {
	adapter, ok := c.registry.Get(provider)
	if !ok {
		return nil, core.NewNotFoundError(fmt.Sprintf("no provider named %q", provider))
	}
	lister, ok := adapter.(providers.ModelLister)
	if !ok {
		return nil, core.NewInvalidRequestError(fmt.Sprintf("provider %q cannot list local models", adapter.Name()), nil)
	}
	if ok, reason := adapter.IsConfigured(); !ok {
		return nil, core.NewConfigError(reason, fmt.Sprintf("%s is not configured; set %s", adapter.Name(), adapter.CredentialEnv()))
	}

	baseURL := adapter.Config().BaseURL
	key := cache.Key(adapter.Name(), baseURL)
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("model list cache read failed", "provider", adapter.Name(), "error", err)
		} else if cached != nil {
			return cached.Models, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, ModelListTimeout)
	defer cancel()

	resp, err := c.clients[adapter.Name()].Exchange(ctx, lister.ModelListRequest())
	if err != nil {
		return nil, core.NewProviderError(adapter.Name(), http.StatusBadGateway, "model listing failed: "+err.Error(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, core.NewProviderError(adapter.Name(), http.StatusBadGateway,
			fmt.Sprintf("model listing returned %d: %s", resp.StatusCode, core.Truncate(string(resp.Body))), nil)
	}

	models, err := lister.ParseModelList(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(adapter.Name(), http.StatusBadGateway, err.Error(), err)
	}

	if c.cache != nil {
		entry := &cache.ModelList{
			Version:   cache.CurrentVersion,
			Provider:  adapter.Name(),
			BaseURL:   baseURL,
			UpdatedAt: c.now().UTC(),
			Models:    models,
		}
		if err := c.cache.Set(ctx, key, entry); err != nil {
			slog.Warn("model list cache write failed", "provider", adapter.Name(), "error", err)
		}
	}

	return models, nil
}
