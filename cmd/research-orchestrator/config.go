// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/cache"
	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/internal/httputil"
	"github.com/pdiddy/research-orchestrator/internal/logging"
	"github.com/pdiddy/research-orchestrator/internal/orchestrator"
	"github.com/pdiddy/research-orchestrator/internal/ratelimit"
	"github.com/pdiddy/research-orchestrator/internal/search"
	"github.com/pdiddy/research-orchestrator/internal/secrets"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// setDefaults registers every config key so viper can unmarshal and
// environment overrides apply even without a config file.
func setDefaults() {
	d := types.DefaultConfig()
	viper.SetDefault("rate_limit.max_calls", d.RateLimit.MaxCalls)
	viper.SetDefault("rate_limit.period", d.RateLimit.Period)
	viper.SetDefault("generation.model", d.Generation.Model)
	viper.SetDefault("generation.max_tokens", d.Generation.MaxTokens)
	viper.SetDefault("generation.call_timeout", d.Generation.CallTimeout)
	viper.SetDefault("search.max_results", d.Search.MaxResults)
	viper.SetDefault("search.enable_tavily", d.Search.EnableTavily)
	viper.SetDefault("search.enable_semantic_scholar", d.Search.EnableSemanticScholar)
	viper.SetDefault("search.enable_openalex", d.Search.EnableOpenAlex)
	viper.SetDefault("search.openalex_email", d.Search.OpenAlexEmail)
	viper.SetDefault("search.call_timeout", d.Search.CallTimeout)
	viper.SetDefault("search.user_agent", d.Search.UserAgent)
	viper.SetDefault("improver.quality_threshold", d.Improver.QualityThreshold)
	viper.SetDefault("improver.max_iterations", d.Improver.MaxIterations)
	viper.SetDefault("orchestrator.max_concurrent", d.Orchestrator.MaxConcurrent)
	viper.SetDefault("report.author", d.Report.Author)
	viper.SetDefault("cache.backend", string(d.Cache.Backend))
	viper.SetDefault("cache.path", d.Cache.Path)
	viper.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	viper.SetDefault("cache.ttl", d.Cache.TTL)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("server.addr", d.Server.Addr)
}

// loadConfig unmarshals viper's view of the configuration and fills in
// credentials from the loaded secrets and the environment.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = types.DefaultConfig().Log.Level
	}
	cfg.Generation.APIKeys = secrets.Keys(loadedSecrets, secrets.AnthropicAPIKey)
	cfg.Search.TavilyAPIKey = secrets.Lookup(loadedSecrets, secrets.TavilyAPIKey)
	cfg.Search.SemanticScholarAPIKey = secrets.Lookup(loadedSecrets, secrets.SemanticScholarAPIKey)
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// app is everything a command needs to run the pipeline.
type app struct {
	cfg    types.Config
	logger *zap.Logger
	orch   *orchestrator.Orchestrator
	cache  cache.Cache
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("closing cache", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// newApp wires the limiter, credential rotation, search backends and the
// cache into an orchestrator.
func newApp(noCache bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Backend = types.CacheNone
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(cfg.RateLimit.MaxCalls, cfg.RateLimit.Period)
	gen, err := newGenerator(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}
	engine, err := newSearchEngine(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Generator: gen,
		Search:    engine,
		Cache:     c,
		Logger:    logger,
	}, orchestrator.ConfigFrom(cfg))
	return &app{cfg: cfg, logger: logger, orch: orch, cache: c}, nil
}

// newGenerator builds one Claude backend per credential under a Rotator.
// Each backend acquires the shared limiter before every HTTP attempt and
// gets its own call timeout, so a rotated retry is limited and timed like
// the first call.
func newGenerator(cfg types.Config, limiter httputil.Acquirer, logger *zap.Logger) (genai.Generator, error) {
	if len(cfg.Generation.APIKeys) == 0 {
		return nil, fmt.Errorf("no Anthropic API key: set .secrets/%s or %s",
			secrets.AnthropicAPIKey, secrets.EnvName(secrets.AnthropicAPIKey))
	}
	client := &http.Client{}
	rot, err := genai.NewRotator(cfg.Generation.APIKeys, func(key string) genai.Generator {
		return genai.NewTimed(&genai.ClaudeBackend{
			APIKey:    key,
			Model:     cfg.Generation.Model,
			MaxTokens: cfg.Generation.MaxTokens,
			Client:    client,
			Limiter:   limiter,
		}, cfg.Generation.CallTimeout)
	}, logger)
	if err != nil {
		return nil, err
	}
	return rot, nil
}

// newSearchEngine builds the enabled backends. Each acquires the shared
// limiter before every HTTP attempt, re-sends included.
func newSearchEngine(cfg types.Config, limiter httputil.Acquirer, logger *zap.Logger) (*search.Engine, error) {
	client := &http.Client{Timeout: cfg.Search.CallTimeout}
	var backends []search.Backend
	if cfg.Search.EnableTavily {
		if cfg.Search.TavilyAPIKey == "" {
			logger.Warn("tavily enabled but no API key configured; skipping",
				zap.String("secret", secrets.TavilyAPIKey))
		} else {
			backends = append(backends, &search.TavilyBackend{
				Client: client, APIKey: cfg.Search.TavilyAPIKey, Limiter: limiter, Logger: logger,
			})
		}
	}
	if cfg.Search.EnableSemanticScholar {
		backends = append(backends, &search.SemanticScholarBackend{
			Client: client, APIKey: cfg.Search.SemanticScholarAPIKey, Limiter: limiter,
		})
	}
	if cfg.Search.EnableOpenAlex {
		backends = append(backends, &search.OpenAlexBackend{
			Client: client, Email: cfg.Search.OpenAlexEmail, Limiter: limiter,
		})
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no search backend available: enable one under search.* and configure its key")
	}
	return search.NewEngine(cfg.Search, logger, backends...), nil
}
