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

package ai

import (
	"context"
	"errors"
	"net"

	"github.com/poiesic/gleaner/retry"
)

var (
	// ErrRateLimited indicates the service rejected the request for exceeding a rate or quota window.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a server-side or network failure that may succeed on retry.
	ErrTransient = errors.New("transient service error")

	// ErrFatal indicates a failure that will not succeed on retry (bad input, auth, unknown model).
	ErrFatal = errors.New("fatal service error")

	// ErrAuthentication marks a fatal error caused by a missing or rejected API key.
	ErrAuthentication = errors.New("authentication failed")

	// ErrCountMismatch indicates the service returned a different number of vectors than inputs.
	ErrCountMismatch = errors.New("embedding count mismatch")
)

// KindOf classifies err for retry decisions. Unclassified errors are fatal, except network
// timeouts which are transient. Context cancellation is always fatal.
func KindOf(err error) retry.Kind {
	switch {
	case err == nil:
		return retry.Fatal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return retry.Fatal
	case errors.Is(err, ErrRateLimited):
		return retry.RateLimited
	case errors.Is(err, ErrTransient):
		return retry.Transient
	case errors.Is(err, ErrFatal):
		return retry.Fatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.Transient
	}
	return retry.Fatal
}
