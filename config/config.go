// Package config provides configuration management for the application.
//
// Values are layered: built-in defaults, then an optional YAML file whose string
// values may reference the environment as ${VAR} or ${VAR:-default}, then a .env
// file, then environment variables named by `env` struct tags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig                 `yaml:"server"`
	Gateway    GatewayConfig                `yaml:"gateway"`
	HTTP       HTTPConfig                   `yaml:"http"`
	Logging    LogConfig                    `yaml:"logging"`
	Metrics    MetricsConfig                `yaml:"metrics"`
	AttemptLog AttemptLogConfig             `yaml:"attempt_log"`
	Storage    StorageConfig                `yaml:"storage"`
	Cache      CacheConfig                  `yaml:"cache"`
	Providers  map[string]RawProviderConfig `yaml:"providers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
	// MasterKey enables Bearer authentication on /v1 routes when non-empty
	MasterKey     string `yaml:"master_key" env:"INFERGATE_MASTER_KEY"`
	BodySizeLimit string `yaml:"body_size_limit" env:"BODY_SIZE_LIMIT"`
}

// GatewayConfig holds request defaults applied when callers omit them.
type GatewayConfig struct {
	// Chain is the fallback order used when a request names none
	Chain []string `yaml:"chain" env:"GATEWAY_CHAIN"`
	// Timeout is the per-attempt timeout in seconds
	Timeout     int     `yaml:"timeout" env:"GATEWAY_TIMEOUT"`
	MaxTokens   int     `yaml:"max_tokens" env:"GATEWAY_MAX_TOKENS"`
	Temperature float64 `yaml:"temperature" env:"GATEWAY_TEMPERATURE"`
}

// HTTPConfig configures the upstream HTTP client. Values are seconds; 0 disables a limit.
// Both are hard ceilings shared by every exchange, so a per-request timeout
// longer than either is cut short by them. Validate keeps them at or above
// gateway.timeout.
type HTTPConfig struct {
	Timeout               int `yaml:"timeout" env:"HTTP_TIMEOUT"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout" env:"HTTP_RESPONSE_HEADER_TIMEOUT"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Format is "text", "json" or empty for auto-detection
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Level  string `yaml:"level" env:"LOG_LEVEL"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"METRICS_ENDPOINT"`
}

// AttemptLogConfig controls persistence of gateway call records.
type AttemptLogConfig struct {
	Enabled       bool `yaml:"enabled" env:"ATTEMPT_LOG_ENABLED"`
	BufferSize    int  `yaml:"buffer_size" env:"ATTEMPT_LOG_BUFFER_SIZE"`
	FlushInterval int  `yaml:"flush_interval" env:"ATTEMPT_LOG_FLUSH_INTERVAL"`
	RetentionDays int  `yaml:"retention_days" env:"ATTEMPT_LOG_RETENTION_DAYS"`
}

// StorageConfig selects the attempt log backend.
type StorageConfig struct {
	// Type is "sqlite", "postgresql" or "mongodb"
	Type       string           `yaml:"type" env:"STORAGE_TYPE"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

type PostgreSQLConfig struct {
	URL      string `yaml:"url" env:"POSTGRES_URL"`
	MaxConns int    `yaml:"max_conns" env:"POSTGRES_MAX_CONNS"`
}

type MongoDBConfig struct {
	URL      string `yaml:"url" env:"MONGODB_URL"`
	Database string `yaml:"database" env:"MONGODB_DATABASE"`
}

// CacheConfig configures the local model list cache.
type CacheConfig struct {
	// Type is "local", "redis" or "none"
	Type string `yaml:"type" env:"CACHE_TYPE"`
	// TTL is in seconds
	TTL   int         `yaml:"ttl" env:"CACHE_TTL"`
	Dir   string      `yaml:"dir" env:"CACHE_DIR"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
	Key string `yaml:"key" env:"REDIS_KEY"`
}

// RawProviderConfig is a provider entry as written in YAML, before env overlays.
type RawProviderConfig struct {
	Type         string            `yaml:"type"`
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url"`
	DefaultModel string            `yaml:"default_model"`
	Headers      map[string]string `yaml:"headers"`
}

// LoadResult is what Load produced and where it came from.
type LoadResult struct {
	Config *Config
	// Path is the YAML file that was read, or "" when none was found
	Path string
}

// configPaths are searched in order when CONFIG_PATH is unset.
var configPaths = []string{"config/config.yaml", "config.yaml"}

// Load builds the configuration from defaults, the optional YAML file, .env and the environment.
func Load() (*LoadResult, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := buildDefaultConfig()

	paths := configPaths
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		paths = []string{p}
	}

	var used string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", p, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", p, err)
		}
		used = p
		break
	}

	expandStrings(reflect.ValueOf(cfg).Elem())

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &LoadResult{Config: cfg, Path: used}, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "1M",
		},
		Gateway: GatewayConfig{
			Chain:       []string{"openrouter", "together", "groq", "huggingface", "ollama"},
			Timeout:     60,
			MaxTokens:   500,
			Temperature: 0.7,
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 600,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		AttemptLog: AttemptLogConfig{
			BufferSize:    1000,
			FlushInterval: 5,
			RetentionDays: 30,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			SQLite: SQLiteConfig{
				Path: "data/infergate.db",
			},
			PostgreSQL: PostgreSQLConfig{
				MaxConns: 10,
			},
			MongoDB: MongoDBConfig{
				Database: "infergate",
			},
		},
		Cache: CacheConfig{
			Type: "local",
			TTL:  300,
			Dir:  ".cache",
			Redis: RedisConfig{
				Key: "infergate:models",
			},
		},
		Providers: map[string]RawProviderConfig{},
	}
}

// Validate rejects values the application cannot run with.
func (c *Config) Validate() error {
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive, got %d", c.Gateway.Timeout)
	}
	if c.Gateway.MaxTokens <= 0 {
		return fmt.Errorf("gateway.max_tokens must be positive, got %d", c.Gateway.MaxTokens)
	}
	if c.Gateway.Temperature < 0 || c.Gateway.Temperature > 2 {
		return fmt.Errorf("gateway.temperature must be within [0, 2], got %g", c.Gateway.Temperature)
	}
	if c.HTTP.Timeout < 0 || c.HTTP.ResponseHeaderTimeout < 0 {
		return errors.New("http timeouts must not be negative")
	}
	if c.HTTP.Timeout > 0 && c.HTTP.Timeout < c.Gateway.Timeout {
		return fmt.Errorf("http.timeout (%ds) must not be shorter than gateway.timeout (%ds)", c.HTTP.Timeout, c.Gateway.Timeout)
	}
	if c.HTTP.ResponseHeaderTimeout > 0 && c.HTTP.ResponseHeaderTimeout < c.Gateway.Timeout {
		return fmt.Errorf("http.response_header_timeout (%ds) must not be shorter than gateway.timeout (%ds)", c.HTTP.ResponseHeaderTimeout, c.Gateway.Timeout)
	}
	switch c.Storage.Type {
	case "sqlite", "postgresql", "mongodb":
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}
	switch c.Cache.Type {
	case "local", "redis", "none":
	default:
		return fmt.Errorf("unknown cache type: %q", c.Cache.Type)
	}
	if c.Cache.Type == "redis" && c.Cache.Redis.URL == "" {
		return errors.New("cache.redis.url is required when cache type is redis")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Endpoint, "/") {
		return fmt.Errorf("metrics.endpoint must start with '/', got %q", c.Metrics.Endpoint)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} references. A reference to an
// unset or empty variable without a default is left as written, so an unresolved
// credential stays recognizable as a placeholder.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := parts[1], parts[2] != "", parts[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// expandStrings walks v and expands every string it contains.
func expandStrings(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(expandString(v.String()))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandStrings(v.Field(i))
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			expandStrings(v.Index(i))
		}
	case reflect.Map:
		if v.IsNil() {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			elem := reflect.New(v.Type().Elem()).Elem()
			elem.Set(iter.Value())
			expandStrings(elem)
			v.SetMapIndex(iter.Key(), elem)
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandStrings(v.Elem())
		}
	}
}

// applyEnvOverrides sets every field tagged `env:"NAME"` from the environment when NAME is non-empty.
func applyEnvOverrides(cfg *Config) error {
	return applyEnv(reflect.ValueOf(cfg).Elem())
}

func applyEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		sf := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field); err != nil {
				return err
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
