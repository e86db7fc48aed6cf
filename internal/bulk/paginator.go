// Package bulk pulls every parcel row from the portal's authenticated search
// endpoint, one fixed-size page at a time.
package bulk

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parcel-harvester/internal/crawler"
	"parcel-harvester/pkg/models"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
)

const (
	TokenField = "__RequestVerificationToken"

	searchPath = "/PROSSearch/SearchIndex?FilterWaterfronts=False"
	dataPath   = "/PROSSearch/GetAjax"

	DefaultPageLength = 100
)

var tokenXPath = fmt.Sprintf(`//input[@name=%q]`, TokenField)

// Session is the token and cookie context of one bulk run. The token is
// fetched once and never refreshed; if the server expires it mid-run the
// next page fails and the run aborts.
type Session struct {
	scraper *crawler.Scraper
	token   string
}

// Paginator walks GetAjax pages from start=0 until an empty page.
type Paginator struct {
	scraper *crawler.Scraper
	baseURL string
	length  int
	log     *zap.Logger
}

// Result is the outcome of a completed run.
type Result struct {
	Records  []models.Record
	Pages    int
	Duration time.Duration
}

func NewPaginator(scraper *crawler.Scraper, baseURL string, length int, log *zap.Logger) (*Paginator, error) {
	if length < 1 {
		return nil, fmt.Errorf("page length must be at least 1, got %d", length)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Paginator{
		scraper: scraper,
		baseURL: strings.TrimRight(baseURL, "/"),
		length:  length,
		log:     log,
	}, nil
}

// Authenticate loads the search landing page and reads its verification
// token. Cookies issued with it stay in the scraper's jar.
func (p *Paginator) Authenticate(ctx context.Context) (*Session, error) {
	link := p.baseURL + searchPath
	page, err := p.scraper.Get(ctx, link)
	if err != nil {
		return nil, err
	}
	if page.StatusCode != http.StatusOK {
		return nil, &crawler.TransportError{Method: http.MethodGet, URL: link, StatusCode: page.StatusCode}
	}

	token, err := findToken(page.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", &AuthenticationError{URL: link}, err)
	}
	if token == "" {
		return nil, &AuthenticationError{URL: link}
	}
	p.log.Debug("got verification token", zap.Int("token_len", len(token)))
	return &Session{scraper: p.scraper, token: token}, nil
}

func findToken(body []byte) (string, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	input := htmlquery.FindOne(doc, tokenXPath)
	if input == nil {
		return "", nil
	}
	return strings.TrimSpace(htmlquery.SelectAttr(input, "value")), nil
}

// Run authenticates and then fetches every page. Any failure aborts the run
// and discards the rows fetched so far.
func (p *Paginator) Run(ctx context.Context) (Result, error) {
	began := time.Now()

	sess, err := p.Authenticate(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for start := 0; ; start += p.length {
		rows, err := p.fetchPage(ctx, sess, start)
		if err != nil {
			return Result{}, err
		}
		res.Pages++
		if len(rows) == 0 {
			break
		}
		res.Records = append(res.Records, rows...)
		p.log.Info("fetched page",
			zap.Int("start", start),
			zap.Int("rows", len(rows)),
			zap.Int("total", len(res.Records)))
	}

	res.Duration = time.Since(began)
	return res, nil
}

func (p *Paginator) fetchPage(ctx context.Context, sess *Session, start int) ([]models.Record, error) {
	link := p.baseURL + dataPath
	form := url.Values{}
	form.Set(TokenField, sess.token)
	form.Set("start", strconv.Itoa(start))
	form.Set("length", strconv.Itoa(p.length))

	page, err := sess.scraper.PostForm(ctx, link, form)
	if err != nil {
		return nil, err
	}
	if page.StatusCode != http.StatusOK {
		return nil, &crawler.TransportError{Method: http.MethodPost, URL: link, StatusCode: page.StatusCode}
	}

	rows, err := decodeRows(page.Body)
	if err != nil {
		return nil, &crawler.TransportError{
			Method: http.MethodPost,
			URL:    link,
			Err:    &PageError{Start: start, Err: err},
		}
	}
	return rows, nil
}
