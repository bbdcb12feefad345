package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Search   SearchConfig   `yaml:"search"`
	Browse   BrowseConfig   `yaml:"browse"`
	Sessions SessionsConfig `yaml:"sessions"`
	LLM      LLMConfig      `yaml:"llm"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// ServerConfig holds MCP serving settings.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio" or "http"
	Addr      string `yaml:"addr"`      // http transport only
}

// SearchConfig holds search provider settings.
type SearchConfig struct {
	Backend       string        `yaml:"backend"` // "searxng" or "exa"
	SearXNGURL    string        `yaml:"searxng_url"`
	ExaBaseURL    string        `yaml:"exa_base_url"`
	ExaAPIKey     string        `yaml:"exa_api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MaxFetchBytes int           `yaml:"max_fetch_bytes"`

	RateLimit      float64              `yaml:"rate_limit"` // provider calls per second, 0 = unlimited
	RateBurst      int                  `yaml:"rate_burst"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the search provider.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// BrowseConfig holds browsing engine settings.
type BrowseConfig struct {
	DefaultTopN  int `yaml:"default_topn"`
	MaxTopN      int `yaml:"max_topn"`
	MaxPageLines int `yaml:"max_page_lines"` // hard page-size ceiling
}

// SessionsConfig holds session registry settings.
type SessionsConfig struct {
	MaxSessions     int           `yaml:"max_sessions"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LLMConfig holds chat bridge settings. The endpoint itself is configured
// per session by the setup_llm tool, never here.
type LLMConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxContextBytes int           `yaml:"max_context_bytes"` // document prefix sent to analysis
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "gpt-oss-mcp",
			Version:   "1.0.0",
			Transport: "stdio",
			Addr:      ":8002",
		},
		Search: SearchConfig{
			Backend:       "searxng",
			SearXNGURL:    "http://localhost:6060",
			ExaBaseURL:    "https://api.exa.ai",
			Timeout:       15 * time.Second,
			FetchTimeout:  30 * time.Second,
			MaxFetchBytes: 1024 * 1024,
			RateLimit:     5,
			RateBurst:     10,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Browse: BrowseConfig{
			DefaultTopN:  10,
			MaxTopN:      50,
			MaxPageLines: 200,
		},
		Sessions: SessionsConfig{
			MaxSessions:     100,
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: 1 * time.Minute,
		},
		LLM: LLMConfig{
			Timeout:         60 * time.Second,
			MaxContextBytes: 64 * 1024,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides overrides config fields from GPTOSSMCP_* env vars.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GPTOSSMCP_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("GPTOSSMCP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GPTOSSMCP_SEARCH_BACKEND"); v != "" {
		cfg.Search.Backend = v
	}
	if v := os.Getenv("GPTOSSMCP_SEARXNG_URL"); v != "" {
		cfg.Search.SearXNGURL = v
	}
	if v := os.Getenv("GPTOSSMCP_EXA_API_KEY"); v != "" {
		cfg.Search.ExaAPIKey = v
	}
	if v := os.Getenv("GPTOSSMCP_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Search.Timeout = d
		}
	}
	if v := os.Getenv("GPTOSSMCP_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sessions.MaxSessions = n
		}
	}
	if v := os.Getenv("GPTOSSMCP_SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Sessions.IdleTimeout = d
		}
	}
	if v := os.Getenv("GPTOSSMCP_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("GPTOSSMCP_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("GPTOSSMCP_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("GPTOSSMCP_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// Validate checks config invariants that would otherwise surface as
// confusing runtime failures.
func Validate(cfg *Config) error {
	switch cfg.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be \"stdio\" or \"http\", got %q", cfg.Server.Transport)
	}
	if cfg.Server.Transport == "http" && cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required for the http transport")
	}

	switch cfg.Search.Backend {
	case "searxng":
		if cfg.Search.SearXNGURL == "" {
			return fmt.Errorf("search.searxng_url is required for the searxng backend")
		}
	case "exa":
		if cfg.Search.ExaAPIKey == "" {
			return fmt.Errorf("search.exa_api_key is required for the exa backend")
		}
	default:
		return fmt.Errorf("search.backend must be \"searxng\" or \"exa\", got %q", cfg.Search.Backend)
	}

	if cfg.Browse.MaxTopN < cfg.Browse.DefaultTopN {
		return fmt.Errorf("browse.max_topn (%d) must be >= browse.default_topn (%d)",
			cfg.Browse.MaxTopN, cfg.Browse.DefaultTopN)
	}
	if cfg.Browse.MaxPageLines <= 0 {
		return fmt.Errorf("browse.max_page_lines must be positive")
	}
	if cfg.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive")
	}
	return nil
}
