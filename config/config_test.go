package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "./ragbase_db", cfg.Storage.Path)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Retry.BaseDelay.Duration)
	assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
	assert.Equal(t, 1000, cfg.Pipeline.ChunkSize)
}

func TestParse(t *testing.T) {
	content := `
[storage]
path = "/var/lib/ragbase"

[ratelimit]
capacity = 20.0
refill_rate = 10.0
cleanup_interval = "2m"

[ratelimit.keys.embeddings]
capacity = 5.0
refill_rate = 1.0

[retry]
max_attempts = 5
base_delay = "500ms"
max_delay = "30s"
multiplier = 3.0
jitter_fraction = 0.25

[ai]
embedding_host = "http://embed.internal:8080"
embedding_model = "custom-embed"

[crawl]
user_agent = "ragbase-test/1.0"
blocked_domains = ["internal.example.com"]

[pipeline]
chunk_size = 800
chunk_overlap = 100
`
	cfg, err := Parse(content)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ragbase", cfg.Storage.Path)
	assert.Equal(t, 20.0, cfg.RateLimit.Capacity)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.CleanupInterval.Duration)
	require.Contains(t, cfg.RateLimit.Keys, "embeddings")
	assert.Equal(t, 5.0, cfg.RateLimit.Keys["embeddings"].Capacity)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay.Duration)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay.Duration)
	assert.Equal(t, 0.25, cfg.Retry.JitterFraction)

	// Unset values keep their defaults
	assert.Equal(t, "http://embed.internal:8080", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434", cfg.AI.GeneratorHost)
	assert.Equal(t, "custom-embed", cfg.AI.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.AI.GeneratorModel)

	assert.Equal(t, []string{"internal.example.com"}, cfg.Crawl.BlockedDomains)
	assert.Equal(t, 800, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 100, cfg.Pipeline.ChunkOverlap)
}

func TestParse_InvalidTOML(t *testing.T) {
	_, err := Parse("this is not toml = = =")
	assert.Error(t, err)
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse(`
[retry]
base_delay = "not a duration"
`)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAGBASE_STORAGE_PATH", "/tmp/env_db")
	t.Setenv("RAGBASE_EMBEDDING_MODEL", "env-model")
	t.Setenv("RAGBASE_RATELIMIT_CAPACITY", "42.5")
	t.Setenv("RAGBASE_RETRY_MAX_ATTEMPTS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env_db", cfg.Storage.Path)
	assert.Equal(t, "env-model", cfg.AI.EmbeddingModel)
	assert.Equal(t, 42.5, cfg.RateLimit.Capacity)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("RAGBASE_EMBEDDING_HOST", "http://override:9999")

	cfg, err := Parse(`
[ai]
embedding_host = "http://from-file:1111"
`)
	require.NoError(t, err)
	assert.Equal(t, "http://override:9999", cfg.AI.EmbeddingHost)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty storage path", func(c *Config) { c.Storage.Path = ""; c.Storage.InMemory = false }},
		{"zero capacity", func(c *Config) { c.RateLimit.Capacity = 0 }},
		{"negative refill rate", func(c *Config) { c.RateLimit.RefillRate = -1 }},
		{"bad key override", func(c *Config) {
			c.RateLimit.Keys = map[string]KeyLimitConfig{"bad": {Capacity: 0, RefillRate: 1}}
		}},
		{"zero max attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"zero base delay", func(c *Config) { c.Retry.BaseDelay = Duration{0} }},
		{"max delay below base", func(c *Config) { c.Retry.MaxDelay = Duration{time.Millisecond} }},
		{"multiplier of one", func(c *Config) { c.Retry.Multiplier = 1 }},
		{"jitter fraction of one", func(c *Config) { c.Retry.JitterFraction = 1 }},
		{"missing embedding host", func(c *Config) { c.AI.EmbeddingHost = "" }},
		{"missing generator model", func(c *Config) { c.AI.GeneratorModel = "" }},
		{"zero max tokens", func(c *Config) { c.AI.MaxTokens = 0 }},
		{"zero body size", func(c *Config) { c.Crawl.MaxBodySize = 0 }},
		{"zero chunk size", func(c *Config) { c.Pipeline.ChunkSize = 0 }},
		{"overlap at chunk size", func(c *Config) { c.Pipeline.ChunkOverlap = c.Pipeline.ChunkSize }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestInMemoryNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration{90 * time.Second}
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	var parsed Duration
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, d.Duration, parsed.Duration)
}
