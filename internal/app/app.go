// Package app wires configuration, the gateway and its observers into a
// running HTTP server and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"infergate/config"
	"infergate/internal/attemptlog"
	"infergate/internal/cache"
	"infergate/internal/gateway"
	"infergate/internal/pkg/llmclient"
	"infergate/internal/observability"
	"infergate/internal/providers"
	"infergate/internal/server"
)

// App owns every long-lived component of the server.
type App struct {
	config   *config.Config
	gateway  *gateway.Client
	attempts *attemptlog.Result
	cache    cache.Cache
	server   *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the options for creating an App.
type Config struct {
	// AppConfig is the result of config.Load
	AppConfig *config.LoadResult

	// Factory builds provider adapters; nil uses DefaultFactory
	Factory *providers.ProviderFactory

	// Registerer receives the gateway metrics; nil uses prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

// New creates an App. The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil || cfg.AppConfig.Config == nil {
		return nil, errors.New("app config is required")
	}
	if cfg.Factory == nil {
		cfg.Factory = DefaultFactory()
	}
	appCfg := cfg.AppConfig.Config
	a := &App{config: appCfg}

	modelCache, err := NewModelCache(appCfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model cache: %w", err)
	}
	a.cache = modelCache

	attempts, err := attemptlog.New(ctx, appCfg)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize attempt log: %w", err), a.closeCache())
	}
	a.attempts = attempts

	hooks := attempts.Logger.Hooks()
	var exchangeHooks llmclient.Hooks
	if appCfg.Metrics.Enabled {
		reg := cfg.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		metrics := observability.NewMetrics(reg)
		hooks = gateway.Combine(hooks, metrics.GatewayHooks())
		exchangeHooks = metrics.ExchangeHooks()
	}

	gw, err := BuildGateway(appCfg, cfg.Factory, GatewayOptions{
		Hooks:         hooks,
		ExchangeHooks: exchangeHooks,
		ModelCache:    modelCache,
	})
	if err != nil {
		return nil, errors.Join(err, a.attempts.Close(), a.closeCache())
	}
	a.gateway = gw

	a.logStartupInfo(cfg.AppConfig.Path)

	serverCfg := &server.Config{
		MasterKey:       appCfg.Server.MasterKey,
		MetricsEnabled:  appCfg.Metrics.Enabled,
		MetricsEndpoint: appCfg.Metrics.Endpoint,
		BodySizeLimit:   appCfg.Server.BodySizeLimit,
		Calls:           attempts.Reader,
	}
	a.server = server.New(gw, serverCfg)

	return a, nil
}

// Gateway returns the gateway client.
func (a *App) Gateway() *gateway.Client {
	return a.gateway
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start serves HTTP on addr. It blocks until the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return errors.New("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, then flushes the attempt log and closes the
// model cache. It runs every step, joins their errors and is idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if a.attempts != nil {
		if err := a.attempts.Close(); err != nil {
			slog.Error("attempt log close error", "error", err)
			errs = append(errs, fmt.Errorf("attempt log close: %w", err))
		}
	}
	if err := a.closeCache(); err != nil {
		slog.Error("model cache close error", "error", err)
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	slog.Info("application shutdown complete")
	return nil
}

func (a *App) closeCache() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

func (a *App) logStartupInfo(configPath string) {
	cfg := a.config

	if configPath != "" {
		slog.Info("configuration loaded", "path", configPath)
	}

	if cfg.Server.MasterKey == "" {
		slog.Warn("SECURITY WARNING: INFERGATE_MASTER_KEY not set - server running in UNSAFE MODE",
			"security_risk", "unauthenticated access allowed",
			"recommendation", "set INFERGATE_MASTER_KEY environment variable to secure this gateway")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	for _, s := range a.gateway.Registry().Statuses() {
		if s.Configured {
			slog.Info("provider configured", "provider", s.Name, "base_url", s.BaseURL, "model", s.DefaultModel, "masked", s.Credential)
		} else {
			slog.Warn("provider not configured", "provider", s.Name, "reason", s.Reason, "env", s.CredentialEnv)
		}
	}
	slog.Info("fallback chain", "chain", a.gateway.DefaultChain().String())

	if cfg.Metrics.Enabled {
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	if cfg.AttemptLog.Enabled {
		slog.Info("attempt log enabled",
			"storage", cfg.Storage.Type,
			"buffer_size", cfg.AttemptLog.BufferSize,
			"flush_interval", cfg.AttemptLog.FlushInterval,
			"retention_days", cfg.AttemptLog.RetentionDays,
		)
	} else {
		slog.Info("attempt log disabled")
	}

	slog.Info("model cache configured", "type", cfg.Cache.Type)
}
