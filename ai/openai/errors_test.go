package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/retry"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Kind
	}{
		{"429 status", errors.New("API returned unexpected status code: 429: Rate limit reached"), retry.RateLimited},
		{"quota on 429", errors.New("API returned unexpected status code: 429: You exceeded your current quota"), retry.RateLimited},
		{"503 status", errors.New("API returned unexpected status code: 503"), retry.Transient},
		{"500 status", errors.New("API returned unexpected status code: 500: internal error"), retry.Transient},
		{"connection reset", errors.New("read tcp: connection reset by peer"), retry.Transient},
		{"client timeout", errors.New("request timeout: API call exceeded deadline"), retry.Transient},
		{"bad request", errors.New("API returned unexpected status code: 400: invalid input"), retry.Fatal},
		{"auth", errors.New("API returned unexpected status code: 401: Incorrect API key"), retry.Fatal},
		{"context length mentions numbers", errors.New("API returned unexpected status code: 400: This model's maximum context length is 8192 tokens, however you requested 8500 tokens"), retry.Fatal},
		{"auth with digits in key", errors.New("API returned unexpected status code: 401: Incorrect API key provided: sk-ab429xyz"), retry.Fatal},
		{"bare number in text", errors.New("decode response: 500 bytes of garbage"), retry.Fatal},
		{"langchaingo rate limit", llms.NewError(llms.ErrCodeRateLimit, "openai", "Rate limit exceeded"), retry.RateLimited},
		{"langchaingo unavailable", llms.NewError(llms.ErrCodeProviderUnavailable, "openai", "unavailable"), retry.Transient},
		{"langchaingo token limit", llms.NewError(llms.ErrCodeTokenLimit, "openai", "too long"), retry.Fatal},
		{"net timeout", &net.DNSError{Err: "i/o timeout", Name: "api.openai.com", IsTimeout: true}, retry.Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.want, ai.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_PassesThrough(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Equal(t, context.Canceled, classify(context.Canceled))

	already := fmt.Errorf("%w: upstream", ai.ErrTransient)
	assert.Equal(t, already, classify(already))
}

func TestClassify_Authentication(t *testing.T) {
	err := classify(errors.New("API returned unexpected status code: 401: Incorrect API key provided"))
	assert.ErrorIs(t, err, ai.ErrAuthentication)
	assert.Equal(t, retry.Fatal, ai.KindOf(err))

	err = classify(llms.NewError(llms.ErrCodeAuthentication, "openai", "Invalid or missing API key"))
	assert.ErrorIs(t, err, ai.ErrAuthentication)

	err = classify(errors.New("API returned unexpected status code: 400: bad input"))
	assert.NotErrorIs(t, err, ai.ErrAuthentication)
}
