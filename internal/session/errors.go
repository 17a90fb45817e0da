package session

import (
	"fmt"
)

// FetchError wraps errors that occur while talking to the marketplace.
// It is used for logging and metrics labels only: the exported fetch
// primitives absorb failures into empty results.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
