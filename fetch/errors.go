package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedURL indicates a URL that cannot be requested. Never retried.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrInvalidOption is returned for out-of-range fetcher options.
	ErrInvalidOption = errors.New("invalid fetcher option")
)

// StatusError is returned for a response outside the 2xx range.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Code)
}
