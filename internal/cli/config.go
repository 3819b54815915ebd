package cli

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/blogflow/server/internal/agent/model"
	"github.com/blogflow/server/internal/core"
	pkgredis "github.com/blogflow/server/pkg/redis"
	"github.com/blogflow/server/pkg/sqldb"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config
	SQL   sqldb.Config
	Store model.StoreConfig

	// LLM provider
	LLM       model.LLMConfig
	Decompose model.DecomposeModelConfig
	Synth     model.SynthModelConfig

	// Workflow
	Search  model.SearchConfig
	Ranking model.RankingConfig
	Review  model.ReviewConfig
	Server  model.ServerConfig
}

// Env returns the parsed deployment environment.
func (c *AppConfig) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// StateTTL parses STATE_TTL; an empty value disables expiry.
func (c *AppConfig) StateTTL() (time.Duration, error) {
	if c.Store.TTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(c.Store.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid STATE_TTL %q: %w", c.Store.TTL, err)
	}
	return ttl, nil
}

// SearchTimeout parses SEARCH_TIMEOUT.
func (c *AppConfig) SearchTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid SEARCH_TIMEOUT %q: %w", c.Search.Timeout, err)
	}
	return d, nil
}

// loadConfig reads envFile when present and binds the environment. The
// returned dotenvErr is informational; a missing .env is normal outside
// local development.
func loadConfig(envFile string) (cfg *AppConfig, dotenvErr error, err error) {
	if envFile != "" {
		dotenvErr = godotenv.Load(envFile)
	}

	cfg = &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, dotenvErr, fmt.Errorf("failed to process environment config: %w", err)
	}
	return cfg, dotenvErr, nil
}
