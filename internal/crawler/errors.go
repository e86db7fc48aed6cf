package crawler

import (
	"fmt"
	"net/http"
)

// TransportError wraps a request that never produced a usable response:
// DNS, connection reset, timeout, or a status the caller cannot accept.
// Nothing in this package retries it.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnexpectedStatusError is a detail page answered with something other than
// 200 or 404. The ID is skipped and the scan goes on.
type UnexpectedStatusError struct {
	URL        string
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}
