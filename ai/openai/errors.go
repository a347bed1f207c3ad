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

package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/gleaner/ai"
)

// statusPattern matches the prefix the client puts on non-200 responses.
var statusPattern = regexp.MustCompile(`status code: (\d{3})\b`)

// transportMarkers identify connection-level failures that carry no status code.
var transportMarkers = []string{
	"request timeout", "timeout", "connection refused", "connection reset", "unexpected eof", "broken pipe",
}

// classify wraps err with the ai error kind. HTTP failures are classified by
// their status code: 429 is rate limited, 5xx is transient, anything else fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ai.ErrRateLimited) || errors.Is(err, ai.ErrTransient) || errors.Is(err, ai.ErrFatal) {
		return err
	}

	if status, ok := statusCode(err); ok {
		switch {
		case status == 429:
			return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
		case status >= 500:
			return fmt.Errorf("%w: %w", ai.ErrTransient, err)
		case status == 401 || status == 403:
			return fmt.Errorf("%w: %w: %w", ai.ErrFatal, ai.ErrAuthentication, err)
		default:
			return fmt.Errorf("%w: %w", ai.ErrFatal, err)
		}
	}

	var llmErr *llms.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Code {
		case llms.ErrCodeRateLimit:
			return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
		case llms.ErrCodeTimeout, llms.ErrCodeProviderUnavailable:
			return fmt.Errorf("%w: %w", ai.ErrTransient, err)
		case llms.ErrCodeAuthentication:
			return fmt.Errorf("%w: %w: %w", ai.ErrFatal, ai.ErrAuthentication, err)
		}
		return fmt.Errorf("%w: %w", ai.ErrFatal, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ai.ErrTransient, err)
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transportMarkers {
		if strings.Contains(msg, m) {
			return fmt.Errorf("%w: %w", ai.ErrTransient, err)
		}
	}
	return fmt.Errorf("%w: %w", ai.ErrFatal, err)
}

// statusCode extracts the HTTP status from the first "status code: NNN" in err.
func statusCode(err error) (int, bool) {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return code, true
}
