package models

import (
	"net/http"
	"time"
)

// FetchedPage is one raw response pulled from the portal, before extraction.
type FetchedPage struct {
	URL        string
	Timestamp  time.Time
	StatusCode int
	Headers    *http.Header
	Body       []byte
}

// Found reports whether the portal served the page.
func (p *FetchedPage) Found() bool {
	return p.StatusCode == http.StatusOK
}

// NotFound reports whether the portal has no parcel at this address.
func (p *FetchedPage) NotFound() bool {
	return p.StatusCode == http.StatusNotFound
}
