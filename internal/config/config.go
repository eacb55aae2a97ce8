// Package config loads application configuration from config.yaml and
// INTEL_* environment variables.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// CacheConfig configures report cache freshness and retention.
type CacheConfig struct {
	TTLDays       int `yaml:"ttl_days" mapstructure:"ttl_days"`
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// PipelineConfig configures report generation.
type PipelineConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DefaultKind string `yaml:"default_kind" mapstructure:"default_kind"`
}

// RetryConfig configures the backoff applied to every external call.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// RateLimitConfig configures outbound request pacing.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int `yaml:"burst" mapstructure:"burst"`
}

// CircuitConfig configures per-service circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ScoringConfig configures ICP fit. Weights sum to 100.
type ScoringConfig struct {
	TargetIndustries   []string `yaml:"target_industries" mapstructure:"target_industries"`
	PreferredSizeBands []string `yaml:"preferred_size_bands" mapstructure:"preferred_size_bands"`

	IndustryWeight   float64 `yaml:"industry_weight" mapstructure:"industry_weight"`
	SizeWeight       float64 `yaml:"size_weight" mapstructure:"size_weight"`
	TechWeight       float64 `yaml:"tech_weight" mapstructure:"tech_weight"`
	IBPWeight        float64 `yaml:"ibp_weight" mapstructure:"ibp_weight"`
	PainWeight       float64 `yaml:"pain_weight" mapstructure:"pain_weight"`
	EngagementWeight float64 `yaml:"engagement_weight" mapstructure:"engagement_weight"`
}

// WeightSum returns the sum of the ICP fit weights.
func (c ScoringConfig) WeightSum() float64 {
	return c.IndustryWeight + c.SizeWeight + c.TechWeight +
		c.IBPWeight + c.PainWeight + c.EngagementWeight
}

// TemporalConfig configures the stale-refresh worker.
type TemporalConfig struct {
	HostPort     string `yaml:"host_port" mapstructure:"host_port"`
	Namespace    string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue    string `yaml:"task_queue" mapstructure:"task_queue"`
	RefreshBatch int    `yaml:"refresh_batch" mapstructure:"refresh_batch"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("cache.ttl_days", 30)
	v.SetDefault("cache.retention_days", 60)
	v.SetDefault("pipeline.timeout_secs", 60)
	v.SetDefault("pipeline.default_kind", "comprehensive")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("rate_limit.requests_per_minute", 60)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)
	v.SetDefault("scoring.target_industries", []string{"manufacturing", "distribution", "consumer goods", "retail"})
	v.SetDefault("scoring.preferred_size_bands", []string{"mid-market", "enterprise"})
	v.SetDefault("scoring.industry_weight", 20)
	v.SetDefault("scoring.size_weight", 20)
	v.SetDefault("scoring.tech_weight", 15)
	v.SetDefault("scoring.ibp_weight", 20)
	v.SetDefault("scoring.pain_weight", 15)
	v.SetDefault("scoring.engagement_weight", 10)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "sales-intel-refresh")
	v.SetDefault("temporal.refresh_batch", 50)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the configuration for the given command mode
// ("report", "serve", "worker", "migrate", "cache", "account").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "report", "serve", "worker":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validatePipeline()...)
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if mode == "worker" {
			if c.Temporal.HostPort == "" {
				errs = append(errs, "temporal.host_port is required")
			}
			if c.Temporal.TaskQueue == "" {
				errs = append(errs, "temporal.task_queue is required")
			}
		}
	case "migrate", "cache", "account":
		errs = append(errs, c.validateStore()...)
		if c.Cache.TTLDays <= 0 {
			errs = append(errs, "cache.ttl_days must be > 0")
		}
		if c.Cache.RetentionDays < 0 {
			errs = append(errs, "cache.retention_days must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (sqlite file path)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}
	return errs
}

func (c *Config) validatePipeline() []string {
	var errs []string
	if c.Pipeline.TimeoutSecs <= 0 {
		errs = append(errs, "pipeline.timeout_secs must be > 0")
	}
	if c.Cache.TTLDays <= 0 {
		errs = append(errs, "cache.ttl_days must be > 0")
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, "retry.max_attempts must be between 1 and 10")
	}
	if c.Retry.BaseDelayMs < 0 || c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		errs = append(errs, "retry delays must satisfy 0 <= base_delay_ms <= max_delay_ms")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, "rate_limit values must be >= 0")
	}

	weights := []float64{
		c.Scoring.IndustryWeight, c.Scoring.SizeWeight, c.Scoring.TechWeight,
		c.Scoring.IBPWeight, c.Scoring.PainWeight, c.Scoring.EngagementWeight,
	}
	for _, w := range weights {
		if w < 0 {
			errs = append(errs, "scoring weights must be >= 0")
			break
		}
	}
	// Weights should be close to 100 (allow tolerance for floating-point).
	if sum := c.Scoring.WeightSum(); math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("scoring weights should sum to 100, got %.1f", sum))
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
