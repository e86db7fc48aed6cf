package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScraperGetReturnsAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "gone")
	}))
	defer srv.Close()

	s, err := NewScraper(ScraperOptions{UserAgent: "test-agent"})
	require.NoError(t, err)

	page, err := s.Get(context.Background(), srv.URL+"/x")
	require.NoError(t, err)
	require.True(t, page.NotFound())
	require.Equal(t, "gone", string(page.Body))
	require.EqualValues(t, 1, s.Requests())
}

func TestScraperPostFormKeepsCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /landing", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		io.WriteString(w, "ok")
	})
	mux.HandleFunc("POST /submit", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil || c.Value != "abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		require.NoError(t, r.ParseForm())
		io.WriteString(w, r.PostForm.Get("start"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s, err := NewScraper(ScraperOptions{})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), srv.URL+"/landing")
	require.NoError(t, err)

	page, err := s.PostForm(context.Background(), srv.URL+"/submit", url.Values{"start": {"200"}})
	require.NoError(t, err)
	require.True(t, page.Found())
	require.Equal(t, "200", string(page.Body))
}

func TestScraperTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	s, err := NewScraper(ScraperOptions{Timeout: time.Second})
	require.NoError(t, err)

	_, err = s.Get(context.Background(), base)
	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, http.MethodGet, terr.Method)
}

func TestScraperSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	s, err := NewScraper(ScraperOptions{Delay: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := s.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestScraperMaxBodySize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "0123456789")
	}))
	defer srv.Close()

	s, err := NewScraper(ScraperOptions{MaxBodySize: 4})
	require.NoError(t, err)
	page, err := s.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "0123", string(page.Body))

	s, err = NewScraper(ScraperOptions{})
	require.NoError(t, err)
	page, err = s.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(page.Body))
}
