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

package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers    = 5
	defaultInterval   = 1500 * time.Millisecond
	defaultRetries    = 3
	defaultRetryDelay = time.Second
	defaultTimeout    = 30 * time.Second
	maxBodyBytes      = 10 << 20

	// DefaultUserAgent identifies gleaner to the sites it reads.
	DefaultUserAgent = "gleaner/1.0"
)

// Fetcher retrieves documents with a fixed pool of workers. Each worker owns
// a limiter enforcing the minimum interval between its own requests, so the
// aggregate rate grows with the worker count.
type Fetcher struct {
	pool      *ants.Pool
	client    *http.Client
	userAgent string
	workers   int
	interval  time.Duration
	policy    retry.Policy
	maxBody   int64
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithWorkers sets the number of concurrent workers. Default 5.
func WithWorkers(n int) Option {
	return func(f *Fetcher) error {
		if n < 1 {
			return fmt.Errorf("%w: workers %d", ErrInvalidOption, n)
		}
		f.workers = n
		return nil
	}
}

// WithInterval sets the minimum time between two requests of one worker. Default 1.5s.
func WithInterval(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d < 0 {
			return fmt.Errorf("%w: interval %s", ErrInvalidOption, d)
		}
		f.interval = d
		return nil
	}
}

// WithRetries sets how many times a transient failure is retried. Default 3.
func WithRetries(n int) Option {
	return func(f *Fetcher) error {
		if n < 0 {
			return fmt.Errorf("%w: retries %d", ErrInvalidOption, n)
		}
		f.policy.MaxAttempts = n + 1
		return nil
	}
}

// WithRetryDelay sets the backoff after the first transient failure. It doubles per retry.
func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d < 0 {
			return fmt.Errorf("%w: retry delay %s", ErrInvalidOption, d)
		}
		f.policy.BaseDelay = d
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default client. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout %s", ErrInvalidOption, d)
		}
		f.client.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) error {
		if c != nil {
			f.client = c
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) error {
		if ua != "" {
			f.userAgent = ua
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
		return nil
	}
}

// New creates a Fetcher. Call Release when done.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: DefaultUserAgent,
		workers:   defaultWorkers,
		interval:  defaultInterval,
		policy: retry.Policy{
			MaxAttempts: defaultRetries + 1,
			BaseDelay:   defaultRetryDelay,
			MaxDelay:    30 * time.Second,
		},
		maxBody: maxBodyBytes,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetcher")

	pool, err := ants.NewPool(f.workers)
	if err != nil {
		return nil, err
	}
	f.pool = pool
	return f, nil
}

// Workers returns the configured worker count.
func (f *Fetcher) Workers() int {
	return f.workers
}

// Release releases the worker pool.
// The fetcher should not be used after calling Release.
func (f *Fetcher) Release() {
	if f.pool != nil {
		f.pool.Release()
	}
}

// Fetch streams a FetchResult for every SourceURL received from urls.
//
// Workers stop taking new URLs as soon as ctx is done; URLs left in the
// channel are never fetched. The returned channel is closed once every
// worker has exited, and the caller must drain it.
func (f *Fetcher) Fetch(ctx context.Context, urls <-chan core.SourceURL) <-chan core.FetchResult {
	out := make(chan core.FetchResult, f.workers)
	var wg sync.WaitGroup

	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		worker := func() {
			defer wg.Done()
			f.work(ctx, i, urls, out)
		}
		if err := f.pool.Submit(worker); err != nil {
			wg.Done()
			f.logger.Error("failed to start fetch worker", "worker", i, "err", err)
		}
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (f *Fetcher) work(ctx context.Context, id int, urls <-chan core.SourceURL, out chan<- core.FetchResult) {
	limiter := f.newLimiter()
	for {
		// Cancellation wins over a ready URL.
		if ctx.Err() != nil {
			return
		}
		var (
			src core.SourceURL
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case src, ok = <-urls:
			if !ok {
				return
			}
		}

		res := f.FetchOne(ctx, limiter, src)
		f.logger.Debug("fetched", "worker", id, "url", src.URL, "class", res.Class, "status", res.Status, "attempts", res.Attempts)
		out <- res
	}
}

func (f *Fetcher) newLimiter() *rate.Limiter {
	if f.interval == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(f.interval), 1)
}

// FetchOne fetches src, waiting on limiter before every attempt and retrying
// transient failures under the fetcher's policy. It never returns an error:
// the outcome is carried by the result's Class and Err.
func (f *Fetcher) FetchOne(ctx context.Context, limiter *rate.Limiter, src core.SourceURL) core.FetchResult {
	res := core.FetchResult{Source: src}

	if err := validateURL(src.URL); err != nil {
		res.Class = core.FetchPermanent
		res.Err = err
		return res
	}

	var body []byte
	attempts, err := retry.Do(ctx, f.policy, retryKind, func(ctx context.Context) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, res.Status, err = f.get(ctx, src.URL)
		return err
	})
	res.Attempts = attempts

	switch {
	case err == nil:
		res.Class = core.FetchOK
		res.Content = body
		if res.Content == nil {
			res.Content = []byte{}
		}
	case ctx.Err() != nil:
		res.Class = core.FetchCanceled
		res.Err = ctx.Err()
	default:
		res.Class = Classify(res.Status, err)
		if res.Class == core.FetchOK || res.Class == core.FetchCanceled {
			res.Class = core.FetchTransient
		}
		res.Err = err
	}
	return res
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if int64(len(body)) > f.maxBody {
		f.logger.WarnContext(ctx, "response body truncated", "url", rawURL, "limit", f.maxBody)
		body = body[:f.maxBody]
	}
	return body, resp.StatusCode, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrMalformedURL)
	}
	return nil
}
