package bulk

import "fmt"

// AuthenticationError means the search landing page did not hand out a
// verification token. The run cannot start.
type AuthenticationError struct {
	URL string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("no %s field on %s", TokenField, e.URL)
}

// PageError is a page whose body could not be decoded. It aborts the run
// like a transport failure: a truncated page sequence is indistinguishable
// from a short one.
type PageError struct {
	Start int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page at start=%d: %v", e.Start, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
