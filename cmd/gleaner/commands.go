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

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/poiesic/gleaner"
	"github.com/poiesic/gleaner/answer"
	"github.com/poiesic/gleaner/config"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/ingestion"
	"github.com/poiesic/gleaner/server"
	"github.com/poiesic/gleaner/sitemap"
	"github.com/urfave/cli/v2"
)

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the config file, then applies the command's flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	setDuration := func(name string, dst *config.Duration) {
		if c.IsSet(name) {
			dst.Duration = c.Duration(name)
		}
	}

	setString("db", &cfg.Database.Path)
	setString("api-key", &cfg.AI.APIKey)
	setString("embedding-host", &cfg.AI.EmbeddingHost)
	setString("embedding-model", &cfg.AI.EmbeddingModel)
	setString("chat-host", &cfg.AI.ChatHost)
	setString("chat-model", &cfg.AI.ChatModel)
	setString("addr", &cfg.Answer.Addr)

	if c.IsSet("sitemap") {
		cfg.Sitemap.URLs = c.StringSlice("sitemap")
	}
	setString("base-url", &cfg.Sitemap.BaseURL)
	setInt("limit", &cfg.Sitemap.MaxURLs)
	setInt("sitemap-limit", &cfg.Sitemap.MaxSitemaps)
	if c.IsSet("limit") && !c.IsSet("sitemap-limit") && cfg.Sitemap.MaxSitemaps == 0 {
		cfg.Sitemap.MaxSitemaps = config.SitemapLimit(cfg.Sitemap.MaxURLs)
	}
	if c.Bool("all-urls") {
		cfg.Sitemap.Include = nil
		cfg.Sitemap.Exclude = nil
	}

	setInt("workers", &cfg.Fetch.Workers)
	setDuration("interval", &cfg.Fetch.Interval)
	setInt("max-retries", &cfg.Fetch.Retries)
	setDuration("retry-delay", &cfg.Fetch.RetryDelay)

	setInt("batch-size", &cfg.Embedding.BatchSize)
	setInt("chunk-size", &cfg.Chunk.Size)
	setInt("chunk-overlap", &cfg.Chunk.Overlap)
}

func openDatabase(cfg *config.Config) (*gleaner.Database, error) {
	db, err := gleaner.NewDatabase(cfg.Database.Path,
		gleaner.WithAIConfig(cfg.AIConfig()),
		gleaner.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// withInterrupt cancels the returned context on the first SIGINT or SIGTERM.
// A second signal exits the process immediately.
func withInterrupt(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-signals:
		case <-done:
			return
		}
		slog.Warn("interrupt received, finishing the current article; interrupt again to exit now")
		cancel()
		select {
		case <-signals:
			slog.Error("second interrupt, exiting without flushing")
			os.Exit(130)
		case <-done:
		}
	}()

	return ctx, func() {
		signal.Stop(signals)
		close(done)
		cancel()
	}
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := withInterrupt(c.Context)
	defer stop()

	sitemaps := cfg.Sitemap.URLs
	if len(sitemaps) == 0 {
		if cfg.Sitemap.BaseURL == "" {
			return fmt.Errorf("no sitemap: pass --sitemap or --base-url, or set sitemap.urls in the config")
		}
		resolver, err := sitemap.NewResolver(sitemap.WithUserAgent(cfg.Fetch.UserAgent))
		if err != nil {
			return err
		}
		root, err := resolver.DiscoverRoots(ctx, cfg.Sitemap.BaseURL)
		if err != nil {
			return err
		}
		slog.Info("found sitemap", "url", root)
		sitemaps = []string{root}
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []ingestion.Option{
		ingestion.WithWorkers(cfg.Fetch.Workers),
		ingestion.WithInterval(cfg.Fetch.Interval.Duration),
		ingestion.WithFetchRetries(cfg.Fetch.Retries, cfg.Fetch.RetryDelay.Duration),
		ingestion.WithUserAgent(cfg.Fetch.UserAgent),
		ingestion.WithMaxURLs(cfg.Sitemap.MaxURLs),
		ingestion.WithMaxSitemaps(cfg.Sitemap.MaxSitemaps),
		ingestion.WithFilter(cfg.Filter()),
		ingestion.WithBatchSize(cfg.Embedding.BatchSize),
		ingestion.WithChunkSize(cfg.Chunk.Size),
		ingestion.WithChunkOverlap(cfg.Chunk.Overlap),
		ingestion.WithRetryPolicy(cfg.RetryPolicy()),
		ingestion.WithDryRun(c.Bool("dry-run")),
		ingestion.WithRefresh(c.Bool("refresh")),
	}
	if !c.Bool("no-progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}
	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx, sitemaps)
	if summary != nil {
		fmt.Fprint(c.App.Writer, summary.String())
	}
	return err
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	answerer, err := db.NewAnswerer(answer.WithPublication(cfg.Answer.Publication))
	if err != nil {
		return err
	}

	filter := make(map[string]string)
	for _, key := range []string{"section", "author"} {
		if v := c.String(key); v != "" {
			filter[key] = v
		}
	}
	n := cfg.Answer.Chunks
	if c.IsSet("chunks") {
		n = c.Int("chunks")
	}

	result, err := answerer.Ask(c.Context, question, n, filter)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, result.Text)
	if len(result.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for i, src := range result.Sources {
			fmt.Fprintf(w, "  [%d] %s by %s (%.3f)\n      %s\n", i+1, src.Title, src.Author, src.Score, src.SourceURL)
		}
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	answerer, err := db.NewAnswerer(answer.WithPublication(cfg.Answer.Publication))
	if err != nil {
		return err
	}
	srv, err := server.NewServer(answerer, db.Index())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, cfg.Answer.Addr)
}

func inspectCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	w := c.App.Writer
	count, err := db.Index().Count(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Database: %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "Chunks:   %d\n", count)
	fmt.Fprintf(w, "Articles: %d\n", db.Ledger().Len())

	samples, err := db.Index().Sample(c.Context, c.Int("sample"))
	if err != nil {
		return err
	}
	for i, ch := range samples {
		fmt.Fprintf(w, "\n--- sample %d: %s (chunk %d)\n", i+1, ch.Title, ch.Seq)
		fmt.Fprintf(w, "author=%s section=%s published=%s\n%s\n", ch.Author, ch.Section, ch.Published, ch.SourceURL)
		fmt.Fprintln(w, preview(ch.Text, 200))
	}

	query := c.String("query")
	if query == "" {
		return nil
	}
	answerer, err := db.NewAnswerer()
	if err != nil {
		return err
	}
	hits, err := answerer.Retriever().Retrieve(c.Context, query, 5, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nQuery %q: %d hits\n", query, len(hits))
	for i, hit := range hits {
		fmt.Fprintf(w, "%d: [%0.3f] %s\n   %s\n", i+1, hit.Score, hit.Chunk.Title, preview(hit.Chunk.Text, 120))
	}
	return nil
}

func ledgerCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	entries := db.Ledger().Entries()
	if len(entries) == 0 {
		fmt.Fprintln(c.App.Writer, "ledger is empty")
		return nil
	}
	if limit := c.Int("limit"); limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return writeLedger(c.App.Writer, entries)
}

func writeLedger(w io.Writer, entries []core.LedgerEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tCHUNKS\tHASH\tRUN\tINDEXED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", e.URL, e.Chunks, e.ContentHash, e.RunID, e.IndexedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
