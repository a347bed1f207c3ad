package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   core.FetchClass
	}{
		{"ok", 200, nil, core.FetchOK},
		{"no content", 204, nil, core.FetchOK},
		{"not found", 404, &StatusError{Code: 404}, core.FetchPermanent},
		{"gone", 410, nil, core.FetchPermanent},
		{"too many requests", 429, &StatusError{Code: 429}, core.FetchTransient},
		{"server error", 500, nil, core.FetchTransient},
		{"unavailable via error only", 0, &StatusError{Code: 503}, core.FetchTransient},
		{"redirect not followed", 301, nil, core.FetchPermanent},
		{"body read failure", 200, errors.New("unexpected EOF"), core.FetchTransient},
		{"connection refused", 0, errors.New("dial tcp: connection refused"), core.FetchTransient},
		{"timeout", 0, context.DeadlineExceeded, core.FetchTransient},
		{"canceled", 0, fmt.Errorf("get: %w", context.Canceled), core.FetchCanceled},
		{"malformed", 0, fmt.Errorf("%w: bad", ErrMalformedURL), core.FetchPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status, tt.err))
		})
	}
}

func TestRetryKind(t *testing.T) {
	assert.Equal(t, retry.Transient, retryKind(&StatusError{Code: 503}))
	assert.Equal(t, retry.Fatal, retryKind(&StatusError{Code: 404}))
	assert.Equal(t, retry.Fatal, retryKind(context.Canceled))
}
