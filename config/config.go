// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML values can be written as
// strings like "500ms" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

// KeyLimitConfig overrides bucket settings for a single rate limiter key.
type KeyLimitConfig struct {
	Capacity   float64 `toml:"capacity"`
	RefillRate float64 `toml:"refill_rate"`
}

// RateLimitConfig configures the token bucket rate limiter.
type RateLimitConfig struct {
	Capacity        float64                   `toml:"capacity"`
	RefillRate      float64                   `toml:"refill_rate"`
	CleanupInterval Duration                  `toml:"cleanup_interval"`
	Keys            map[string]KeyLimitConfig `toml:"keys"`
}

// RetryConfig configures the backoff retry policy.
type RetryConfig struct {
	MaxAttempts    int      `toml:"max_attempts"`
	BaseDelay      Duration `toml:"base_delay"`
	MaxDelay       Duration `toml:"max_delay"`
	Multiplier     float64  `toml:"multiplier"`
	JitterFraction float64  `toml:"jitter_fraction"`
}

// AIConfig configures the embedding and generation services.
type AIConfig struct {
	EmbeddingHost  string  `toml:"embedding_host"`
	GeneratorHost  string  `toml:"generator_host"`
	EmbeddingModel string  `toml:"embedding_model"`
	GeneratorModel string  `toml:"generator_model"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
}

// CrawlConfig configures URL validation and fetching.
type CrawlConfig struct {
	UserAgent      string   `toml:"user_agent"`
	MaxBodySize    int64    `toml:"max_body_size"`
	AllowedSchemes []string `toml:"allowed_schemes"`
	BlockedDomains []string `toml:"blocked_domains"`
}

// PipelineConfig configures ingestion.
type PipelineConfig struct {
	PoolSize     int `toml:"pool_size"`
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// Config is the application configuration, loaded from a TOML file with
// environment variable overrides.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Retry     RetryConfig     `toml:"retry"`
	AI        AIConfig        `toml:"ai"`
	Crawl     CrawlConfig     `toml:"crawl"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
}

// Default returns a configuration with working defaults for a local
// single-node deployment.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "./ragbase_db",
		},
		RateLimit: RateLimitConfig{
			Capacity:        10,
			RefillRate:      5,
			CleanupInterval: Duration{5 * time.Minute},
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BaseDelay:      Duration{1 * time.Second},
			MaxDelay:       Duration{60 * time.Second},
			Multiplier:     2.0,
			JitterFraction: 0.5,
		},
		AI: AIConfig{
			EmbeddingHost:  "http://localhost:11434",
			GeneratorHost:  "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			GeneratorModel: "qwen2.5:3b",
			MaxTokens:      1000,
			Temperature:    0,
		},
		Crawl: CrawlConfig{
			UserAgent:      "ragbase/1.0",
			MaxBodySize:    10 << 20,
			AllowedSchemes: []string{"http", "https"},
		},
		Pipeline: PipelineConfig{
			PoolSize:     0, // 0 means half the CPUs
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
	}
}

// LoadFile loads configuration from a TOML file, applies environment
// variable overrides, and validates the result. Missing sections keep
// their defaults.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(content))
}

// Parse parses configuration from TOML content, applies environment
// variable overrides, and validates the result.
func Parse(content string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load returns the default configuration with environment variable
// overrides applied, for running without a config file.
func Load() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides settings from RAGBASE_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("RAGBASE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("RAGBASE_EMBEDDING_HOST"); v != "" {
		c.AI.EmbeddingHost = v
	}
	if v := os.Getenv("RAGBASE_GENERATOR_HOST"); v != "" {
		c.AI.GeneratorHost = v
	}
	if v := os.Getenv("RAGBASE_EMBEDDING_MODEL"); v != "" {
		c.AI.EmbeddingModel = v
	}
	if v := os.Getenv("RAGBASE_GENERATOR_MODEL"); v != "" {
		c.AI.GeneratorModel = v
	}
	if v := os.Getenv("RAGBASE_RATELIMIT_CAPACITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.Capacity = f
		}
	}
	if v := os.Getenv("RAGBASE_RATELIMIT_REFILL_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.RefillRate = f
		}
	}
	if v := os.Getenv("RAGBASE_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("RAGBASE_USER_AGENT"); v != "" {
		c.Crawl.UserAgent = v
	}
}

// Validate reports the first invalid setting found.
func (c *Config) Validate() error {
	if c.Storage.Path == "" && !c.Storage.InMemory {
		return fmt.Errorf("%w: storage path required", ErrInvalidConfig)
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("%w: ratelimit capacity must be positive", ErrInvalidConfig)
	}
	if c.RateLimit.RefillRate <= 0 {
		return fmt.Errorf("%w: ratelimit refill rate must be positive", ErrInvalidConfig)
	}
	for key, kc := range c.RateLimit.Keys {
		if kc.Capacity <= 0 || kc.RefillRate <= 0 {
			return fmt.Errorf("%w: ratelimit key %q must have positive capacity and refill rate", ErrInvalidConfig, key)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Retry.BaseDelay.Duration <= 0 {
		return fmt.Errorf("%w: retry base delay must be positive", ErrInvalidConfig)
	}
	if c.Retry.MaxDelay.Duration < c.Retry.BaseDelay.Duration {
		return fmt.Errorf("%w: retry max delay must be at least the base delay", ErrInvalidConfig)
	}
	if c.Retry.Multiplier <= 1 {
		return fmt.Errorf("%w: retry multiplier must be greater than 1", ErrInvalidConfig)
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction >= 1 {
		return fmt.Errorf("%w: retry jitter fraction must be in [0, 1)", ErrInvalidConfig)
	}
	if c.AI.EmbeddingHost == "" || c.AI.GeneratorHost == "" {
		return fmt.Errorf("%w: AI hosts required", ErrInvalidConfig)
	}
	if c.AI.EmbeddingModel == "" || c.AI.GeneratorModel == "" {
		return fmt.Errorf("%w: AI models required", ErrInvalidConfig)
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("%w: AI max tokens must be positive", ErrInvalidConfig)
	}
	if c.Crawl.MaxBodySize <= 0 {
		return fmt.Errorf("%w: crawl max body size must be positive", ErrInvalidConfig)
	}
	if c.Pipeline.ChunkSize <= 0 {
		return fmt.Errorf("%w: pipeline chunk size must be positive", ErrInvalidConfig)
	}
	if c.Pipeline.ChunkOverlap < 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		return fmt.Errorf("%w: pipeline chunk overlap must be non-negative and below chunk size", ErrInvalidConfig)
	}
	return nil
}
