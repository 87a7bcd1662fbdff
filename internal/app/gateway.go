package app

import (
	"fmt"
	"time"

	"infergate/config"
	"infergate/internal/cache"
	"infergate/internal/core"
	"infergate/internal/gateway"
	"infergate/internal/httpclient"
	"infergate/internal/pkg/llmclient"
	"infergate/internal/providers"
	"infergate/internal/providers/groq"
	"infergate/internal/providers/huggingface"
	"infergate/internal/providers/ollama"
	"infergate/internal/providers/openrouter"
	"infergate/internal/providers/together"
)

// DefaultFactory registers every built-in provider type.
func DefaultFactory() *providers.ProviderFactory {
	f := providers.NewProviderFactory()
	f.Add(openrouter.Registration)
	f.Add(together.Registration)
	f.Add(groq.Registration)
	f.Add(huggingface.Registration)
	f.Add(ollama.Registration)
	return f
}

// GatewayOptions carries the observers a gateway is built with.
type GatewayOptions struct {
	Hooks         gateway.Hooks
	ExchangeHooks llmclient.Hooks
	ModelCache    cache.Cache
}

// BuildGateway resolves providers from cfg and creates the gateway client.
func BuildGateway(cfg *config.Config, factory *providers.ProviderFactory, opts GatewayOptions) (*gateway.Client, error) {
	registry, err := providers.BuildRegistry(factory, providers.ResolveProviders(cfg.Providers))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = time.Duration(cfg.HTTP.Timeout) * time.Second
	httpCfg.ResponseHeaderTimeout = time.Duration(cfg.HTTP.ResponseHeaderTimeout) * time.Second

	return gateway.New(registry, gateway.Config{
		HTTPClient:    httpclient.NewHTTPClient(&httpCfg),
		ExchangeHooks: opts.ExchangeHooks,
		Hooks:         opts.Hooks,
		DefaultChain:  core.FallbackChain(cfg.Gateway.Chain),
		Defaults:      GatewayDefaults(cfg.Gateway),
		ModelCache:    opts.ModelCache,
	}), nil
}

// GatewayDefaults converts configured request defaults to options.
func GatewayDefaults(g config.GatewayConfig) core.Options {
	opts := core.Options{Timeout: time.Duration(g.Timeout) * time.Second}
	if g.MaxTokens > 0 {
		maxTokens := g.MaxTokens
		opts.MaxTokens = &maxTokens
	}
	temperature := g.Temperature
	opts.Temperature = &temperature
	return opts
}

// NewModelCache opens the configured model list cache. Type "none" returns nil.
func NewModelCache(cfg config.CacheConfig) (cache.Cache, error) {
	ttl := time.Duration(cfg.TTL) * time.Second
	switch cfg.Type {
	case "none":
		return nil, nil
	case "redis":
		c, err := cache.NewRedisCache(cache.RedisConfig{URL: cfg.Redis.URL, Key: cfg.Redis.Key, TTL: ttl})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "local", "":
		return cache.NewLocalCache(cfg.Dir, ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
