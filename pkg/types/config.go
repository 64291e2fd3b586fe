// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Config is the full configuration of one orchestrator process. Field tags
// match the keys in research-orchestrator.yaml so viper can unmarshal it.
type Config struct {
	RateLimit    RateLimitConfig    `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
	Generation   GenerationConfig   `json:"generation" yaml:"generation" mapstructure:"generation"`
	Search       SearchConfig       `json:"search" yaml:"search" mapstructure:"search"`
	Improver     ImproverConfig     `json:"improver" yaml:"improver" mapstructure:"improver"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator" mapstructure:"orchestrator"`
	Report       ReportConfig       `json:"report" yaml:"report" mapstructure:"report"`
	Cache        CacheConfig        `json:"cache" yaml:"cache" mapstructure:"cache"`
	Log          LogConfig          `json:"log" yaml:"log" mapstructure:"log"`
	Server       ServerConfig       `json:"server" yaml:"server" mapstructure:"server"`
}

// RateLimitConfig bounds outbound calls with a sliding window.
type RateLimitConfig struct {
	// MaxCalls is the number of calls allowed in any trailing Period.
	MaxCalls int `json:"max_calls" yaml:"max_calls" mapstructure:"max_calls"`

	// Period is the window length.
	Period time.Duration `json:"period" yaml:"period" mapstructure:"period"`
}

// GenerationConfig holds settings for the text-generation service.
type GenerationConfig struct {
	// Model is the model identifier sent with every request.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps each response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// CallTimeout bounds a single generation call, including retries.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`

	// APIKeys is the ordered credential list used for rotation. Loaded from
	// secrets and the environment, never from the config file.
	APIKeys []string `json:"-" yaml:"-" mapstructure:"-"`
}

// SearchConfig holds settings for the web search service.
type SearchConfig struct {
	// MaxResults is the number of results kept per query after dedup.
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableTavily controls whether the Tavily backend is used.
	EnableTavily bool `json:"enable_tavily" yaml:"enable_tavily" mapstructure:"enable_tavily"`

	// EnableSemanticScholar controls whether the Semantic Scholar backend is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex backend is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// OpenAlexEmail joins the OpenAlex polite pool when set.
	OpenAlexEmail string `json:"openalex_email" yaml:"openalex_email" mapstructure:"openalex_email"`

	// CallTimeout bounds a single search call.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`

	// UserAgent is sent with every search request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	TavilyAPIKey          string `json:"-" yaml:"-" mapstructure:"-"`
	SemanticScholarAPIKey string `json:"-" yaml:"-" mapstructure:"-"`
}

// ImproverConfig controls the convergence loop.
type ImproverConfig struct {
	// QualityThreshold stops the loop once the critique reaches it (1-10).
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold" mapstructure:"quality_threshold"`

	// MaxIterations bounds the number of loop bodies.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" mapstructure:"max_iterations"`
}

// OrchestratorConfig controls fan-out.
type OrchestratorConfig struct {
	// MaxConcurrent caps in-flight agent tasks per fan-out.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ReportConfig controls Markdown rendering.
type ReportConfig struct {
	// Author is written to the front matter.
	Author string `json:"author" yaml:"author" mapstructure:"author"`
}

// CacheBackend selects the report cache implementation.
type CacheBackend string

const (
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
	CacheNone   CacheBackend = "none"
)

// CacheConfig holds report cache settings.
type CacheConfig struct {
	Backend   CacheBackend  `json:"backend" yaml:"backend" mapstructure:"backend"`
	Path      string        `json:"path" yaml:"path" mapstructure:"path"`
	RedisAddr string        `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	TTL       time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a key.
func DefaultConfig() Config {
	return Config{
		RateLimit: RateLimitConfig{MaxCalls: 15, Period: 60 * time.Second},
		Generation: GenerationConfig{
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   4096,
			CallTimeout: 120 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:   5,
			EnableTavily: true,
			CallTimeout:  30 * time.Second,
			UserAgent:    "research-orchestrator/0.1",
		},
		Improver:     ImproverConfig{QualityThreshold: 8.0, MaxIterations: 3},
		Orchestrator: OrchestratorConfig{MaxConcurrent: 8},
		Report:       ReportConfig{Author: "Research Orchestrator"},
		Cache: CacheConfig{
			Backend: CacheSQLite,
			Path:    "cache/research.db",
			TTL:     168 * time.Hour,
		},
		Log:    LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.RateLimit.MaxCalls <= 0 {
		return fmt.Errorf("rate_limit.max_calls must be positive, got %d", c.RateLimit.MaxCalls)
	}
	if c.RateLimit.Period <= 0 {
		return fmt.Errorf("rate_limit.period must be positive, got %s", c.RateLimit.Period)
	}
	if c.Generation.MaxTokens <= 0 {
		return fmt.Errorf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Improver.QualityThreshold < MinQuality || c.Improver.QualityThreshold > MaxQuality {
		return fmt.Errorf("improver.quality_threshold must be in [%g,%g], got %g",
			MinQuality, MaxQuality, c.Improver.QualityThreshold)
	}
	if c.Improver.MaxIterations < 0 {
		return fmt.Errorf("improver.max_iterations must not be negative, got %d", c.Improver.MaxIterations)
	}
	if c.Orchestrator.MaxConcurrent <= 0 {
		return fmt.Errorf("orchestrator.max_concurrent must be positive, got %d", c.Orchestrator.MaxConcurrent)
	}
	switch c.Cache.Backend {
	case CacheSQLite, CacheRedis, CacheNone, "":
	default:
		return fmt.Errorf("cache.backend %q is not one of sqlite, redis, none", c.Cache.Backend)
	}
	return nil
}
