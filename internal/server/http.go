package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"infergate/internal/attemptlog"
)

// Default settings.
const (
	DefaultBodySizeLimit   = "1M"
	DefaultMetricsEndpoint = "/metrics"
)

// Server wraps the Echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server options. A nil Config uses defaults with no authentication.
type Config struct {
	// MasterKey enables Bearer authentication when non-empty
	MasterKey       string
	MetricsEnabled  bool
	MetricsEndpoint string
	// BodySizeLimit uses echo's size syntax, e.g. "1M"
	BodySizeLimit string
	// Calls serves GET /v1/calls when non-nil
	Calls attemptlog.Reader
}

// New builds the HTTP API over a gateway.
func New(gw Gateway, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(gw, cfg.Calls)

	authSkipPaths := []string{"/health"}
	metricsPath := ""
	if cfg.MetricsEnabled {
		metricsPath = resolveMetricsPath(cfg.MetricsEndpoint)
		authSkipPaths = append(authSkipPaths, metricsPath)
	}

	bodyLimit := cfg.BodySizeLimit
	if bodyLimit == "" {
		bodyLimit = DefaultBodySizeLimit
	}

	e.Use(RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(AuthMiddleware(cfg.MasterKey, authSkipPaths))

	e.GET("/health", handler.Health)
	if metricsPath != "" {
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	v1 := e.Group("/v1")
	v1.POST("/complete", handler.Complete)
	v1.GET("/providers", handler.Providers)
	v1.GET("/local/models", handler.LocalModels)
	if cfg.Calls != nil {
		v1.GET("/calls", handler.Calls)
	}

	return &Server{echo: e, handler: handler}
}

// resolveMetricsPath cleans the configured path and refuses anything under
// /v1 so metrics can never shadow an API route or bypass its authentication.
func resolveMetricsPath(endpoint string) string {
	if endpoint == "" {
		return DefaultMetricsEndpoint
	}
	p := path.Clean("/" + strings.TrimPrefix(endpoint, "/"))
	if p == "/" || p == "/v1" || strings.HasPrefix(p, "/v1/") || p == "/health" {
		slog.Warn("metrics endpoint conflicts with API routes, using default",
			"configured", endpoint, "using", DefaultMetricsEndpoint)
		return DefaultMetricsEndpoint
	}
	return p
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be used with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
