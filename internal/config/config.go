// Package config loads okapi configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/wizenheimer/okapi"
	"github.com/wizenheimer/okapi/analysis"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	Ranking  RankingConfig   `yaml:"ranking"`
	Search   SearchConfig    `yaml:"search"`
	Analysis analysis.Config `yaml:"analysis"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// RankingConfig holds the BM25 parameters.
type RankingConfig struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// Parameters converts the ranking section to okapi.Parameters.
func (r RankingConfig) Parameters() okapi.Parameters {
	return okapi.Parameters{K1: r.K1, B: r.B}
}

// SearchConfig controls result truncation. Limit <= 0 returns every document.
type SearchConfig struct {
	Limit int `yaml:"limit"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if path is non-empty), applies OKAPI_*
// environment overrides and validates the result. Missing values keep
// their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	params := okapi.DefaultParameters()
	return &Config{
		Ranking: RankingConfig{
			K1: params.K1,
			B:  params.B,
		},
		Search: SearchConfig{
			Limit: 10,
		},
		Analysis: analysis.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate rejects parameter values BM25 is not defined for.
func (c *Config) Validate() error {
	if err := c.Ranking.Parameters().Validate(); err != nil {
		return fmt.Errorf("%w: ranking: %w", ErrInvalidConfig, err)
	}
	if c.Analysis.MinTokenLength < 0 {
		return fmt.Errorf("%w: analysis.minTokenLength must be >= 0, got %d", ErrInvalidConfig, c.Analysis.MinTokenLength)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides reads OKAPI_* environment variables. Values that do
// not parse are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OKAPI_RANKING_K1"); v != "" {
		if k1, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.K1 = k1
		}
	}
	if v := os.Getenv("OKAPI_RANKING_B"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Ranking.B = b
		}
	}
	if v := os.Getenv("OKAPI_SEARCH_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Search.Limit = limit
		}
	}
	if v := os.Getenv("OKAPI_ANALYSIS_MINTOKENLENGTH"); v != "" {
		if minLength, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MinTokenLength = minLength
		}
	}
	if v := os.Getenv("OKAPI_ANALYSIS_STEMMING"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Analysis.EnableStemming = enabled
		}
	}
	if v := os.Getenv("OKAPI_ANALYSIS_STOPWORDS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Analysis.EnableStopwords = enabled
		}
	}
	if v := os.Getenv("OKAPI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OKAPI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
