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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/batcher"
	"github.com/poiesic/gleaner/chunker"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/fetch"
	"github.com/poiesic/gleaner/parser"
	"github.com/poiesic/gleaner/retry"
	"github.com/poiesic/gleaner/sitemap"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/writer"
)

// Pipeline ingests the articles listed in sitemaps into a vector index.
// A Pipeline can run any number of times; each Run gets its own run ID.
type Pipeline struct {
	index    storage.VectorIndex
	ledger   storage.Ledger
	embedder ai.Embedder

	fetchOpts    []fetch.Option
	resolverOpts []sitemap.Option
	batchSize    int
	chunkSize    int
	chunkOverlap int
	policy       retry.Policy
	dryRun       bool
	refresh      bool
	progress     io.Writer
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithWorkers sets the number of concurrent fetch workers. Default 5.
func WithWorkers(n int) Option {
	return func(p *Pipeline) error {
		p.fetchOpts = append(p.fetchOpts, fetch.WithWorkers(n))
		return nil
	}
}

// WithInterval sets the minimum delay between two requests of one fetch worker. Default 1.5s.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) error {
		p.fetchOpts = append(p.fetchOpts, fetch.WithInterval(d))
		return nil
	}
}

// WithFetchRetries sets how often a transient fetch failure is retried, and the first backoff.
func WithFetchRetries(n int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		p.fetchOpts = append(p.fetchOpts, fetch.WithRetries(n), fetch.WithRetryDelay(delay))
		return nil
	}
}

// WithBatchSize sets the number of chunks per embedding request. Default 100.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		p.batchSize = n
		return nil
	}
}

// WithChunkSize sets the chunk size in characters. Default 2400.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) error {
		p.chunkSize = n
		return nil
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks. Default 400.
func WithChunkOverlap(n int) Option {
	return func(p *Pipeline) error {
		p.chunkOverlap = n
		return nil
	}
}

// WithRetryPolicy sets the retry policy for embedding requests.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.policy = policy
		return nil
	}
}

// WithDryRun stops every article after chunking. Nothing is embedded or written.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) error {
		p.dryRun = dryRun
		return nil
	}
}

// WithRefresh fetches URLs already in the ledger and re-indexes those whose content changed.
func WithRefresh(refresh bool) Option {
	return func(p *Pipeline) error {
		p.refresh = refresh
		return nil
	}
}

// WithMaxURLs caps the number of article URLs taken from the sitemaps. Zero means no cap.
func WithMaxURLs(n int) Option {
	return func(p *Pipeline) error {
		p.resolverOpts = append(p.resolverOpts, sitemap.WithMaxURLs(n))
		return nil
	}
}

// WithMaxSitemaps caps the number of sitemap documents fetched. Zero means no cap.
func WithMaxSitemaps(n int) Option {
	return func(p *Pipeline) error {
		p.resolverOpts = append(p.resolverOpts, sitemap.WithMaxSitemaps(n))
		return nil
	}
}

// WithFilter restricts discovered URLs by path.
func WithFilter(f sitemap.Filter) Option {
	return func(p *Pipeline) error {
		p.resolverOpts = append(p.resolverOpts, sitemap.WithFilter(f))
		return nil
	}
}

// WithHTTPClient sets the client used for sitemaps and article pages.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) error {
		p.resolverOpts = append(p.resolverOpts, sitemap.WithHTTPClient(c))
		p.fetchOpts = append(p.fetchOpts, fetch.WithHTTPClient(c))
		return nil
	}
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) error {
		p.resolverOpts = append(p.resolverOpts, sitemap.WithUserAgent(ua))
		p.fetchOpts = append(p.fetchOpts, fetch.WithUserAgent(ua))
		return nil
	}
}

// WithProgress prints a running tally to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	index storage.VectorIndex,
	ledger storage.Ledger,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if ledger == nil {
		return nil, ErrLedgerRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		index:        index,
		ledger:       ledger,
		embedder:     provider.Embedder(),
		batchSize:    batcher.DefaultBatchSize,
		chunkSize:    chunker.DefaultSize,
		chunkOverlap: chunker.DefaultOverlap,
		policy:       retry.DefaultPolicy(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if _, err := chunker.New(p.chunkSize, p.chunkOverlap); err != nil {
		return nil, err
	}
	if p.batchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", batcher.ErrInvalidBatchSize, p.batchSize)
	}
	if _, err := sitemap.NewResolver(p.resolverOpts...); err != nil {
		return nil, err
	}
	f, err := fetch.New(p.fetchOpts...)
	if err != nil {
		return nil, err
	}
	f.Release()
	p.resolverOpts = append(p.resolverOpts, sitemap.WithLogger(p.logger))
	p.fetchOpts = append(p.fetchOpts, fetch.WithLogger(p.logger))
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// run carries the per-run state shared by the coordinator's steps.
type run struct {
	p        *Pipeline
	logger   *slog.Logger
	summary  *Summary
	chunker  *chunker.Chunker
	batcher  *batcher.Batcher
	writer   *writer.Writer
	tracker  *ProgressTracker
	finished map[int]bool
}

// Run ingests every article listed in sitemapURLs.
//
// The returned Summary is non-nil whenever discovery succeeded, including when
// the run was interrupted. An error is returned only if no URL was discovered or
// the ledger could not be written.
func (p *Pipeline) Run(ctx context.Context, sitemapURLs []string) (*Summary, error) {
	start := time.Now()
	summary := newSummary(uuid.NewString())
	logger := p.logger.With("run", summary.RunID)

	resolver, err := sitemap.NewResolver(p.resolverOpts...)
	if err != nil {
		return nil, err
	}
	sources, err := resolver.Resolve(ctx, sitemapURLs)
	if err != nil {
		if ctx.Err() != nil {
			summary.Interrupted = true
			summary.Duration = time.Since(start)
			return summary, nil
		}
		return nil, fmt.Errorf("discovery: %w", err)
	}
	summary.Discovered = len(sources)

	var pending []core.SourceURL
	for _, src := range sources {
		if !p.refresh && p.ledger.Has(src.URL) {
			summary.record(src.URL, core.StageUnchanged, "")
			continue
		}
		pending = append(pending, src)
		logger.Debug("stage", "url", src.URL, "stage", core.StageDiscovered)
	}
	logger.Info("run started", "discovered", len(sources), "pending", len(pending),
		"unchanged", summary.Unchanged, "dryRun", p.dryRun, "refresh", p.refresh)

	r, err := p.newRun(summary, len(pending), logger)
	if err != nil {
		return nil, err
	}
	runErr := r.process(ctx, pending)

	// The ledger flush is always the last thing a run does.
	if err := r.writer.Close(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = fmt.Errorf("%w: %w", ErrLedger, err)
	}
	r.tracker.Finish()

	summary.Interrupted = ctx.Err() != nil
	summary.Duration = time.Since(start)
	logger.Info("run finished",
		"indexed", summary.Indexed, "chunks", summary.Chunks, "failed", summary.Failed,
		"skipped", summary.Skipped, "unchanged", summary.Unchanged,
		"notAttempted", summary.NotAttempted, "interrupted", summary.Interrupted,
		"duration", summary.Duration)
	return summary, runErr
}

func (p *Pipeline) newRun(summary *Summary, pending int, logger *slog.Logger) (*run, error) {
	c, err := chunker.New(p.chunkSize, p.chunkOverlap)
	if err != nil {
		return nil, err
	}
	var b *batcher.Batcher
	if !p.dryRun {
		b, err = batcher.New(p.embedder,
			batcher.WithBatchSize(p.batchSize),
			batcher.WithPolicy(p.policy),
			batcher.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}
	tracker := NewProgressTracker(p.progress, pending, 1)
	tracker.Start()
	return &run{
		p:        p,
		logger:   logger,
		summary:  summary,
		chunker:  c,
		batcher:  b,
		writer:   writer.New(p.index, p.ledger, writer.WithRunID(summary.RunID), writer.WithLogger(logger)),
		tracker:  tracker,
		finished: make(map[int]bool, pending),
	}, nil
}

// process fetches pending and handles every result on the calling goroutine.
func (r *run) process(ctx context.Context, pending []core.SourceURL) error {
	fetcher, err := fetch.New(r.p.fetchOpts...)
	if err != nil {
		return err
	}
	defer fetcher.Release()

	// fetchCtx also stops the fetcher when the ledger fails.
	fetchCtx, stop := context.WithCancel(ctx)
	defer stop()

	queue := make(chan core.SourceURL)
	go func() {
		defer close(queue)
		for _, src := range pending {
			select {
			case <-fetchCtx.Done():
				return
			case queue <- src:
			}
		}
	}()

	var fatal error
	for res := range fetcher.Fetch(fetchCtx, queue) {
		// Results that arrive after cancellation or a ledger failure are drained unprocessed.
		if fatal != nil || ctx.Err() != nil || res.Class == core.FetchCanceled {
			continue
		}
		stage, reason, err := r.handle(ctx, res)
		if err != nil {
			fatal = err
			stop()
			r.logger.Error("ledger write failed, stopping run", "url", res.Source.URL, "err", err)
		}
		r.finish(res.Source, stage, reason)
	}

	for _, src := range pending {
		if !r.finished[src.Order] {
			r.logger.Info("article not attempted", "url", src.URL, "reason", core.ReasonInterrupted)
			r.finish(src, core.StageNotAttempted, "")
		}
	}
	return fatal
}

func (r *run) finish(src core.SourceURL, stage core.Stage, reason core.FailureReason) {
	r.finished[src.Order] = true
	r.summary.record(src.URL, stage, reason)
	r.tracker.Advance(stage)
}

// handle takes one fetched page to a terminal stage. Only a ledger failure is returned as an error.
func (r *run) handle(ctx context.Context, res core.FetchResult) (core.Stage, core.FailureReason, error) {
	url := res.Source.URL
	logger := r.logger.With("url", url)

	if !res.OK() {
		reason := core.ReasonFetchTransient
		if res.Class == core.FetchPermanent {
			reason = core.ReasonFetchPermanent
		}
		logger.Warn("fetch failed", "reason", reason, "status", res.Status, "attempts", res.Attempts, "err", res.Err)
		return core.StageFailed, reason, nil
	}

	logger.Debug("stage", "stage", core.StageFetched, "bytes", len(res.Content), "attempts", res.Attempts)

	article, ok := parser.Parse(res.Content, url)
	if !ok {
		logger.Debug("not an article, skipping")
		return core.StageSkipped, "", nil
	}
	if err := core.ValidateArticle(article); err != nil {
		logger.Warn("invalid article", "reason", core.ReasonInvalid, "err", err)
		return core.StageFailed, core.ReasonInvalid, nil
	}
	if r.isUnchanged(article) {
		logger.Debug("already indexed", "canonical", article.CanonicalURL)
		return core.StageUnchanged, "", nil
	}
	logger.Debug("stage", "stage", core.StageParsed, "title", article.Title)

	chunks := r.chunker.Chunk(article)
	if len(chunks) == 0 {
		return core.StageSkipped, "", nil
	}
	logger.Debug("stage", "stage", core.StageChunked, "chunks", len(chunks))
	if r.p.dryRun {
		r.summary.Chunks += len(chunks)
		logger.Debug("validated", "title", article.Title, "chunks", len(chunks))
		return core.StageValidated, "", nil
	}

	embedded, err := r.batcher.Embed(ctx, chunks)
	if err != nil {
		reason := embedFailure(ctx, err)
		logger.Warn("embedding failed", "reason", reason, "chunks", len(chunks), "err", err)
		return core.StageFailed, reason, nil
	}
	logger.Debug("stage", "stage", core.StageEmbedded, "chunks", len(embedded))

	err = r.writer.Write(ctx, writer.Group{Article: article, Chunks: embedded})
	switch {
	case errors.Is(err, writer.ErrLedgerWrite):
		return core.StageFailed, core.ReasonIndexWrite, fmt.Errorf("%w: %w", ErrLedger, err)
	case errors.Is(err, writer.ErrInvalidGroup):
		logger.Warn("invalid chunk group", "reason", core.ReasonInvalid, "err", err)
		return core.StageFailed, core.ReasonInvalid, nil
	case err != nil:
		logger.Warn("index write failed", "reason", core.ReasonIndexWrite, "err", err)
		return core.StageFailed, core.ReasonIndexWrite, nil
	}

	r.summary.Chunks += len(embedded)
	logger.Info("indexed", "title", article.Title, "chunks", len(embedded))
	return core.StageIndexed, "", nil
}

// isUnchanged reports whether the article needs no work. Outside refresh mode any
// ledger entry for the canonical URL counts; in refresh mode the content hash must match.
func (r *run) isUnchanged(article *core.Article) bool {
	entry, err := r.p.ledger.Get(article.CanonicalURL)
	if err != nil {
		return false
	}
	return !r.p.refresh || entry.ContentHash == article.ContentHash
}

func embedFailure(ctx context.Context, err error) core.FailureReason {
	if ctx.Err() != nil {
		return core.ReasonInterrupted
	}
	var batchErr *batcher.BatchError
	if errors.As(err, &batchErr) && batchErr.Kind == retry.RateLimited {
		return core.ReasonEmbedRateLimited
	}
	return core.ReasonEmbedFatal
}
