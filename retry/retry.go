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

package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrInvalidMaxAttempts indicates a policy allowing fewer than one attempt.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrInvalidDelay indicates a negative delay in a policy.
	ErrInvalidDelay = errors.New("retry delays must not be negative")
)

// Kind classifies a failure for retry decisions.
type Kind int

const (
	// Fatal failures are never retried.
	Fatal Kind = iota
	// Transient failures are retried with exponential backoff.
	Transient
	// RateLimited failures wait out the quota window before retrying.
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case RateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// Policy decides whether and when a failed attempt is retried.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first transient failure. It doubles per attempt.
	BaseDelay time.Duration

	// MaxDelay caps the transient backoff. Zero means uncapped.
	MaxDelay time.Duration

	// RateLimitDelay is the fixed wait after a rate-limited failure.
	RateLimitDelay time.Duration

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, kind Kind, delay time.Duration, err error)
}

// Decision is the outcome of Policy.Decide.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// DefaultPolicy returns the policy used for embedding calls: six attempts,
// 2s doubling to 30s for transient failures and 65s for rate limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    6,
		BaseDelay:      2 * time.Second,
		MaxDelay:       30 * time.Second,
		RateLimitDelay: 65 * time.Second,
	}
}

// Validate checks that the policy can be executed.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.RateLimitDelay < 0 {
		return ErrInvalidDelay
	}
	return nil
}

// Decide reports whether the attempt-th attempt (1-based) that failed with
// kind should be followed by another, and after how long.
func (p Policy) Decide(attempt int, kind Kind) Decision {
	if kind == Fatal || attempt >= p.MaxAttempts {
		return Decision{}
	}
	if kind == RateLimited {
		return Decision{Retry: true, Delay: p.RateLimitDelay}
	}

	// Calculate exponential backoff: BaseDelay * 2^(attempt-1)
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return Decision{Retry: true, Delay: delay}
}

// Do runs op until it succeeds, the policy gives up, or ctx is done.
// classify maps an op error to its Kind. Do returns the number of attempts
// made and the error of the last one, or ctx.Err() if ctx ended first.
func Do(ctx context.Context, p Policy, classify func(error) Kind, op func(ctx context.Context) error) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		// Check context before attempting
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}

		kind := classify(lastErr)
		decision := p.Decide(attempt, kind)
		if !decision.Retry {
			return attempt, lastErr
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt,
			"maxAttempts", p.MaxAttempts,
			"kind", kind,
			"delay", decision.Delay,
			"error", lastErr)
		if p.OnRetry != nil {
			p.OnRetry(attempt, kind, decision.Delay, lastErr)
		}

		if err := Sleep(ctx, decision.Delay); err != nil {
			return attempt, err
		}
	}
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
