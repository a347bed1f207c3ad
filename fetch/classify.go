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
	"errors"
	"net/http"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/retry"
)

// Classify maps a response status and request error to a fetch outcome.
//
//   - 2xx with no error: FetchOK
//   - 429, 5xx: FetchTransient
//   - other 4xx, 1xx and unfollowed 3xx: FetchPermanent
//   - malformed URL: FetchPermanent
//   - canceled context: FetchCanceled
//   - timeouts and connection errors: FetchTransient
func Classify(status int, err error) core.FetchClass {
	if errors.Is(err, context.Canceled) {
		return core.FetchCanceled
	}
	if errors.Is(err, ErrMalformedURL) {
		return core.FetchPermanent
	}

	var se *StatusError
	if errors.As(err, &se) {
		status = se.Code
	}
	if status != 0 {
		switch {
		case status >= 200 && status <= 299 && err == nil:
			return core.FetchOK
		case status == http.StatusTooManyRequests, status >= 500:
			return core.FetchTransient
		case status >= 200 && status <= 299:
			// Response arrived but the body could not be read.
			return core.FetchTransient
		default:
			return core.FetchPermanent
		}
	}

	if err == nil {
		return core.FetchOK
	}
	return core.FetchTransient
}

// retryKind adapts Classify to the retry loop.
func retryKind(err error) retry.Kind {
	if Classify(0, err) == core.FetchTransient {
		return retry.Transient
	}
	return retry.Fatal
}
