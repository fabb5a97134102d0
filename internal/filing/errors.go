package filing

import (
	"context"
	"errors"
	"fmt"
)

// NotFoundError reports that the document does not exist at its URL. It is
// permanent: retrying the same URL cannot succeed.
type NotFoundError struct {
	URL        string
	StatusCode int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found (HTTP %d): %s", e.StatusCode, e.URL)
}

// RateLimitError reports that the source throttled or blocked the request.
// Retryable after an extended backoff.
type RateLimitError struct {
	URL        string
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by source (HTTP %d): %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err carries a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsRateLimited reports whether err carries a RateLimitError anywhere in its chain.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsCanceled reports whether err stems from context cancellation or timeout.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// StatusForError maps an acquisition error to the status to persist. It is
// the single classification authority shared by the retry loop and the
// coordinator's bookkeeping.
func StatusForError(err error) Status {
	switch {
	case err == nil:
		return StatusCompleted
	case IsNotFound(err):
		return StatusURLFailure
	case IsRateLimited(err):
		return StatusRateLimited
	default:
		return StatusFailed
	}
}
