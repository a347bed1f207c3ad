package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/gleaner/sitemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Fetch.Workers)
	assert.Equal(t, 1500*time.Millisecond, cfg.Fetch.Interval.Duration)
	assert.Equal(t, 2400, cfg.Chunk.Size)
	assert.Equal(t, 400, cfg.Chunk.Overlap)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, 65*time.Second, cfg.RetryPolicy().RateLimitDelay)
	assert.Equal(t, sitemap.DefaultArticleFilter(), cfg.Filter())
	assert.Equal(t, "text-embedding-3-small", cfg.AIConfig().EmbeddingModel)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gleaner.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "/tmp/articles.db"

[sitemap]
urls = ["https://example.com/sitemap.xml"]
max_urls = 250
include = []

[fetch]
workers = 2
interval = "250ms"

[ai]
embedding_host = "http://localhost:11434"
chat_model = "qwen2.5:3b"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/articles.db", cfg.Database.Path)
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, cfg.Sitemap.URLs)
	assert.Equal(t, 250, cfg.Sitemap.MaxURLs)
	assert.Empty(t, cfg.Sitemap.Include)
	assert.NotEmpty(t, cfg.Sitemap.Exclude)
	assert.Equal(t, 2, cfg.Fetch.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.Interval.Duration)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, "qwen2.5:3b", cfg.AI.ChatModel)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:11434", cfg.AI.EmbeddingHost)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[fetch]\nworkerz = 3\n"), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte("[fetch]\ninterval = \"soon\"\n"), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"no database":      func(c *Config) { c.Database.Path = "" },
		"no workers":       func(c *Config) { c.Fetch.Workers = 0 },
		"negative limit":   func(c *Config) { c.Sitemap.MaxURLs = -1 },
		"overlap too big":  func(c *Config) { c.Chunk.Overlap = c.Chunk.Size },
		"zero batch":       func(c *Config) { c.Embedding.BatchSize = 0 },
		"zero attempts":    func(c *Config) { c.Embedding.MaxAttempts = 0 },
		"no model":         func(c *Config) { c.AI.EmbeddingModel = "" },
		"negative retries": func(c *Config) { c.Fetch.Retries = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Sitemap.URLs = []string{"https://example.com/sitemap.xml"}
	data, err := cfg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "1.5s")

	decoded := &Config{}
	require.NoError(t, Parse(data, decoded))
	assert.Equal(t, cfg, decoded)
}

func TestSitemapLimit(t *testing.T) {
	assert.Equal(t, 0, SitemapLimit(0))
	assert.Equal(t, 80, SitemapLimit(100))
	assert.Equal(t, 200, SitemapLimit(5000))
	assert.Equal(t, 400, SitemapLimit(100000))
}
