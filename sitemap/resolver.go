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

package sitemap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/gleaner/core"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 30 * time.Second
	maxSitemapBytes    = 50 << 20

	// DefaultUserAgent identifies gleaner to the sites it reads.
	DefaultUserAgent = "gleaner/1.0"
)

// RootPaths are the well-known sitemap locations tried by DiscoverRoots, in order.
var RootPaths = []string{"/sitemap.xml", "/wp-sitemap.xml", "/sitemap_index.xml"}

// Resolver discovers document URLs from sitemaps.
type Resolver struct {
	client      *http.Client
	userAgent   string
	concurrency int
	maxSitemaps int // 0 = unlimited
	maxURLs     int // 0 = unlimited
	filter      Filter
	logger      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithConcurrency bounds the number of sitemaps fetched at once. Default 4.
func WithConcurrency(n int) Option {
	return func(r *Resolver) error {
		if n < 1 {
			return fmt.Errorf("%w: concurrency %d", ErrInvalidOption, n)
		}
		r.concurrency = n
		return nil
	}
}

// WithMaxSitemaps caps the total number of sitemap documents fetched,
// roots and children together. Zero means unlimited.
func WithMaxSitemaps(n int) Option {
	return func(r *Resolver) error {
		if n < 0 {
			return fmt.Errorf("%w: max sitemaps %d", ErrInvalidOption, n)
		}
		r.maxSitemaps = n
		return nil
	}
}

// WithMaxURLs caps the number of URLs returned. Zero means unlimited.
func WithMaxURLs(n int) Option {
	return func(r *Resolver) error {
		if n < 0 {
			return fmt.Errorf("%w: max URLs %d", ErrInvalidOption, n)
		}
		r.maxURLs = n
		return nil
	}
}

// WithFilter restricts discovered URLs by path.
func WithFilter(f Filter) Option {
	return func(r *Resolver) error {
		r.filter = f
		return nil
	}
}

// WithHTTPClient sets the client used for sitemap requests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) error {
		if c != nil {
			r.client = c
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) error {
		if ua != "" {
			r.userAgent = ua
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		client:      &http.Client{Timeout: defaultTimeout},
		userAgent:   DefaultUserAgent,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "sitemap")
	return r, nil
}

// fetched is the outcome of one sitemap request.
type fetched struct {
	url string
	doc *parsed
	err error
}

// Resolve fetches sitemapURLs and every sitemap they index, breadth first,
// and returns the deduplicated document URLs in first-seen order.
//
// A sitemap that cannot be fetched or parsed is logged and skipped.
// ErrNoURLs is returned when nothing is discovered.
func (r *Resolver) Resolve(ctx context.Context, sitemapURLs []string) ([]core.SourceURL, error) {
	visited := make(map[string]bool)
	seen := make(map[string]bool)
	var (
		urls    []core.SourceURL
		fetches int
		wave    = r.admit(sitemapURLs, visited, &fetches)
	)

	for len(wave) > 0 {
		results := r.fetchWave(ctx, wave)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []string
		for _, res := range results {
			if res.err != nil {
				r.logger.Warn("skipping sitemap", "url", res.url, "reason", "discovery", "err", res.err)
				continue
			}
			if res.doc.index {
				next = append(next, res.doc.locs...)
				continue
			}
			for _, loc := range res.doc.locs {
				key := dedupKey(loc)
				if seen[key] || !r.filter.Match(loc) {
					continue
				}
				seen[key] = true
				urls = append(urls, core.SourceURL{URL: loc, Order: len(urls)})
			}
		}
		wave = r.admit(next, visited, &fetches)
	}

	if r.maxURLs > 0 && len(urls) > r.maxURLs {
		urls = urls[:r.maxURLs]
	}
	r.logger.Info("sitemaps resolved", "sitemaps", fetches, "urls", len(urls))

	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return urls, nil
}

// admit returns the candidates not yet visited, within the sitemap budget.
func (r *Resolver) admit(candidates []string, visited map[string]bool, fetches *int) []string {
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || visited[c] {
			continue
		}
		if r.maxSitemaps > 0 && *fetches >= r.maxSitemaps {
			r.logger.Debug("sitemap limit reached", "limit", r.maxSitemaps)
			break
		}
		visited[c] = true
		*fetches++
		out = append(out, c)
	}
	return out
}

// fetchWave fetches sitemaps concurrently. Results keep the order of urls.
func (r *Resolver) fetchWave(ctx context.Context, urls []string) []fetched {
	results := make([]fetched, len(urls))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			doc, err := r.fetchSitemap(ctx, u)
			results[i] = fetched{url: u, doc: doc, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Resolver) fetchSitemap(ctx context.Context, rawURL string) (*parsed, error) {
	base, err := url.Parse(rawURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("malformed sitemap URL %q", rawURL)
	}

	data, err := r.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, invalid, err := parseDocument(data, base)
	if err != nil {
		return nil, err
	}
	for _, loc := range invalid {
		r.logger.Debug("dropping invalid location", "sitemap", rawURL, "loc", loc)
	}
	r.logger.Debug("fetched sitemap", "url", rawURL, "index", doc.index, "locations", len(doc.locs))
	return doc, nil
}

func (r *Resolver) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
}

// DiscoverRoots tries the well-known sitemap paths of baseURL in order and
// returns the first that answers with a 2xx status.
func (r *Resolver) DiscoverRoots(ctx context.Context, baseURL string) (string, error) {
	base := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	for _, path := range RootPaths {
		candidate := base + path
		if _, err := r.get(ctx, candidate); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			r.logger.Debug("sitemap candidate failed", "url", candidate, "err", err)
			continue
		}
		r.logger.Info("found sitemap", "url", candidate)
		return candidate, nil
	}
	return "", fmt.Errorf("%w at %s", ErrNoSitemap, baseURL)
}
