package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"parcel-harvester/pkg/models"

	"github.com/gocolly/colly"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; parcel-harvester/1.0)"

const pageKey = "page"

// ScraperOptions configures the session shared by every request of a run.
type ScraperOptions struct {
	UserAgent string
	// Delay is the minimum spacing between any two requests of the session,
	// whoever issues them.
	Delay time.Duration
	// Jitter adds a random pause of up to this long after each request.
	Jitter  time.Duration
	Timeout time.Duration
	// MaxBodySize caps response bodies in bytes; 0 reads them whole.
	MaxBodySize int
	// Transport replaces the default round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Scraper is the HTTP session for one run: one user agent, one cookie jar and
// one rate limiter. It is safe for concurrent use; the limiter is what keeps
// the aggregate request rate bounded.
type Scraper struct {
	c         *colly.Collector
	limiter   *rate.Limiter
	userAgent string
	requests  atomic.Int64
}

func NewScraper(opts ScraperOptions) (*Scraper, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
	)
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	// colly truncates silently at its 10 MiB default
	c.MaxBodySize = opts.MaxBodySize
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		c.WithTransport(opts.Transport)
	}
	if opts.Jitter > 0 {
		err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			RandomDelay: opts.Jitter,
		})
		if err != nil {
			return nil, err
		}
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", opts.UserAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
		r.Headers.Set("DNT", "1")
		r.Headers.Set("Connection", "keep-alive")
	})

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(pageKey, &models.FetchedPage{
			URL:        r.Request.URL.String(),
			Timestamp:  time.Now(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers,
			Body:       r.Body,
		})
	})

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Scraper{
		c:         c,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: opts.UserAgent,
	}, nil
}

// UserAgent is the identifying string sent with every request.
func (s *Scraper) UserAgent() string {
	return s.userAgent
}

// Requests is the number of requests issued so far.
func (s *Scraper) Requests() int64 {
	return s.requests.Load()
}

// Get fetches rawURL. Any status is returned as a page; only transport
// failures are errors.
func (s *Scraper) Get(ctx context.Context, rawURL string) (*models.FetchedPage, error) {
	return s.do(ctx, http.MethodGet, rawURL, nil)
}

// PostForm submits form url-encoded to rawURL.
func (s *Scraper) PostForm(ctx context.Context, rawURL string, form url.Values) (*models.FetchedPage, error) {
	return s.do(ctx, http.MethodPost, rawURL, form)
}

func (s *Scraper) do(ctx context.Context, method, rawURL string, form url.Values) (*models.FetchedPage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	s.requests.Add(1)

	hdr := http.Header{}
	hdr.Set("User-Agent", s.userAgent)
	var body *strings.Reader
	if form != nil {
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
		body = strings.NewReader(form.Encode())
	}

	cctx := colly.NewContext()
	var err error
	if body != nil {
		err = s.c.Request(method, rawURL, body, cctx, hdr)
	} else {
		err = s.c.Request(method, rawURL, nil, cctx, hdr)
	}
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}

	page, ok := cctx.GetAny(pageKey).(*models.FetchedPage)
	if !ok {
		return nil, &TransportError{Method: method, URL: rawURL, Err: errors.New("no response received")}
	}
	return page, nil
}
