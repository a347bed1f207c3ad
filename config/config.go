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

// Package config holds the settings of the gleaner command: defaults, an optional
// TOML file, and validation.
//
// A file only needs the keys it changes:
//
//	[sitemap]
//	urls = ["https://example.com/sitemap.xml"]
//	max_urls = 500
//
//	[fetch]
//	workers = 3
//	interval = "2s"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/batcher"
	"github.com/poiesic/gleaner/chunker"
	"github.com/poiesic/gleaner/retry"
	"github.com/poiesic/gleaner/sitemap"
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)

// Duration is a time.Duration written as a string such as "1.5s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Sitemap   SitemapConfig   `toml:"sitemap"`
	Fetch     FetchConfig     `toml:"fetch"`
	Chunk     ChunkConfig     `toml:"chunk"`
	Embedding EmbeddingConfig `toml:"embedding"`
	AI        AIConfig        `toml:"ai"`
	Answer    AnswerConfig    `toml:"answer"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type SitemapConfig struct {
	URLs        []string `toml:"urls"`
	BaseURL     string   `toml:"base_url"` // searched for a sitemap when URLs is empty
	MaxSitemaps int      `toml:"max_sitemaps"`
	MaxURLs     int      `toml:"max_urls"`
	Include     []string `toml:"include"`
	Exclude     []string `toml:"exclude"`
}

type FetchConfig struct {
	Workers    int      `toml:"workers"`
	Interval   Duration `toml:"interval"`
	Retries    int      `toml:"retries"`
	RetryDelay Duration `toml:"retry_delay"`
	Timeout    Duration `toml:"timeout"`
	UserAgent  string   `toml:"user_agent"`
}

type ChunkConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

type EmbeddingConfig struct {
	BatchSize      int      `toml:"batch_size"`
	MaxAttempts    int      `toml:"max_attempts"`
	BaseDelay      Duration `toml:"base_delay"`
	MaxDelay       Duration `toml:"max_delay"`
	RateLimitDelay Duration `toml:"rate_limit_delay"`
}

type AIConfig struct {
	EmbeddingHost  string `toml:"embedding_host"`
	ChatHost       string `toml:"chat_host"`
	EmbeddingModel string `toml:"embedding_model"`
	ChatModel      string `toml:"chat_model"`
	APIKey         string `toml:"api_key"`
	MaxTokens      int    `toml:"max_tokens"`
}

type AnswerConfig struct {
	Publication string `toml:"publication"`
	Chunks      int    `toml:"chunks"`
	Addr        string `toml:"addr"` // listen address of the serve command
}

// Default returns the built-in settings.
func Default() *Config {
	filter := sitemap.DefaultArticleFilter()
	policy := retry.DefaultPolicy()
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Database: DatabaseConfig{Path: "./gleaner.db"},
		Sitemap: SitemapConfig{
			Include: filter.Include,
			Exclude: filter.Exclude,
		},
		Fetch: FetchConfig{
			Workers:    5,
			Interval:   Duration{1500 * time.Millisecond},
			Retries:    3,
			RetryDelay: Duration{time.Second},
			Timeout:    Duration{30 * time.Second},
			UserAgent:  sitemap.DefaultUserAgent,
		},
		Chunk: ChunkConfig{
			Size:    chunker.DefaultSize,
			Overlap: chunker.DefaultOverlap,
		},
		Embedding: EmbeddingConfig{
			BatchSize:      batcher.DefaultBatchSize,
			MaxAttempts:    policy.MaxAttempts,
			BaseDelay:      Duration{policy.BaseDelay},
			MaxDelay:       Duration{policy.MaxDelay},
			RateLimitDelay: Duration{policy.RateLimitDelay},
		},
		AI: AIConfig{
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			ChatHost:       aiDefaults.ChatHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ChatModel:      aiDefaults.ChatModel,
			MaxTokens:      aiDefaults.MaxTokens,
		},
		Answer: AnswerConfig{Chunks: 5, Addr: ":8000"},
	}
}

// Load reads the TOML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg. Keys absent from data keep their current values.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks that the settings can drive a run.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	case c.Sitemap.MaxSitemaps < 0 || c.Sitemap.MaxURLs < 0:
		return fmt.Errorf("%w: sitemap limits must not be negative", ErrInvalidConfig)
	case c.Fetch.Workers < 1:
		return fmt.Errorf("%w: fetch workers must be positive", ErrInvalidConfig)
	case c.Fetch.Interval.Duration < 0 || c.Fetch.RetryDelay.Duration < 0:
		return fmt.Errorf("%w: fetch delays must not be negative", ErrInvalidConfig)
	case c.Fetch.Retries < 0:
		return fmt.Errorf("%w: fetch retries must not be negative", ErrInvalidConfig)
	case c.Fetch.Timeout.Duration <= 0:
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalidConfig)
	case c.Embedding.BatchSize < 1:
		return fmt.Errorf("%w: embedding batch size must be positive", ErrInvalidConfig)
	}
	if _, err := chunker.New(c.Chunk.Size, c.Chunk.Overlap); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: embedding: %w", ErrInvalidConfig, err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// RetryPolicy returns the retry policy for embedding requests.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    c.Embedding.MaxAttempts,
		BaseDelay:      c.Embedding.BaseDelay.Duration,
		MaxDelay:       c.Embedding.MaxDelay.Duration,
		RateLimitDelay: c.Embedding.RateLimitDelay.Duration,
	}
}

// Filter returns the sitemap URL filter.
func (c *Config) Filter() sitemap.Filter {
	return sitemap.Filter{Include: c.Sitemap.Include, Exclude: c.Sitemap.Exclude}
}

// AIConfig returns the AI provider settings.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithMaxTokens(c.AI.MaxTokens),
	)
}

// SitemapLimit derives a sitemap budget from a URL cap: one sitemap per 25 URLs,
// kept within [80, 400]. Zero means no URL cap and no derived budget.
func SitemapLimit(maxURLs int) int {
	if maxURLs <= 0 {
		return 0
	}
	return min(400, max(80, maxURLs/25))
}
