package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"parcel-harvester/internal/storage"
	"parcel-harvester/pkg/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const salesPage = `<html><body>
<table id="sales_hdr">
<tr><th>Sale Date</th><td>2021-03-01</td></tr>
<tr><th>Sale Price</th><td>$150,000</td></tr>
</table>
</body></html>`

// portal fakes the detail endpoint. status decides the response per
// (swis, id); requested records every hit in order.
type portal struct {
	mu        sync.Mutex
	requested []string
	status    func(swis string, id int) (int, string)
}

func (p *portal) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /PROSParcel/Parcel/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		require.NoError(t, err)
		swis := r.URL.Query().Get("swis")

		p.mu.Lock()
		p.requested = append(p.requested, fmt.Sprintf("%s/%d", swis, id))
		p.mu.Unlock()

		code, body := p.status(swis, id)
		w.WriteHeader(code)
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newCoordinator(t *testing.T, baseURL string, limit int) *Coordinator {
	scraper, err := NewScraper(ScraperOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	c, err := NewCoordinator(scraper, CoordinatorOptions{
		BaseURL:       baseURL,
		NotFoundLimit: limit,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestScanSingleParcel(t *testing.T) {
	p := &portal{status: func(_ string, id int) (int, string) {
		if id == 10004 {
			return http.StatusOK, salesPage
		}
		return http.StatusNotFound, "not found"
	}}
	srv := p.server(t)
	c := newCoordinator(t, srv.URL, 5)

	summary, err := c.Run(context.Background(), []models.JurisdictionScan{
		{SWIS: "407401", MinID: 10000, MaxID: 10010},
	})
	require.NoError(t, err)

	records := summary.Records()
	require.Equal(t, []models.Record{{
		"parcel_id":            "10004",
		"swis":                 "407401",
		"sales_hdr.Sale Date":  "2021-03-01",
		"sales_hdr.Sale Price": "$150,000",
	}}, records)

	table, err := storage.Consolidate(records)
	require.NoError(t, err)
	require.Equal(t, []string{"parcel_id", "sales_hdr.Sale Date", "sales_hdr.Sale Price", "swis"}, table.Columns)
	require.Len(t, table.Rows, 1)

	// 10005..10009 are five consecutive misses, so 10010 is never asked for.
	require.Len(t, p.requested, 10)
	require.Equal(t, "407401/10009", p.requested[len(p.requested)-1])
	require.True(t, summary.Jurisdictions[0].Abandoned)
	require.Equal(t, 1, summary.Jurisdictions[0].Skipped)
}

func TestScanStopsOnLeadingStreak(t *testing.T) {
	// With the limit reached before the parcel, the parcel is never visited.
	p := &portal{status: func(_ string, id int) (int, string) {
		if id == 10005 {
			return http.StatusOK, salesPage
		}
		return http.StatusNotFound, ""
	}}
	srv := p.server(t)
	c := newCoordinator(t, srv.URL, 5)

	summary, err := c.Run(context.Background(), []models.JurisdictionScan{
		{SWIS: "407401", MinID: 10000, MaxID: 10010},
	})
	require.NoError(t, err)
	require.Empty(t, summary.Records())
	require.Equal(t, []string{
		"407401/10000", "407401/10001", "407401/10002", "407401/10003", "407401/10004",
	}, p.requested)
}

func TestScanNeverRequestsPastStreak(t *testing.T) {
	const n, limit = 40, 4
	for k := 1; k+limit-1 <= n; k += 7 {
		t.Run(strconv.Itoa(k), func(t *testing.T) {
			p := &portal{status: func(_ string, id int) (int, string) {
				if id >= k && id <= k+limit-1 {
					return http.StatusNotFound, ""
				}
				return http.StatusOK, salesPage
			}}
			srv := p.server(t)
			c := newCoordinator(t, srv.URL, limit)

			_, err := c.Run(context.Background(), []models.JurisdictionScan{{SWIS: "1", MinID: 1, MaxID: n}})
			require.NoError(t, err)
			require.Len(t, p.requested, k+limit-1)
		})
	}
}

func TestScanUnexpectedStatusKeepsStreak(t *testing.T) {
	p := &portal{status: func(_ string, id int) (int, string) {
		switch id {
		case 2:
			return http.StatusInternalServerError, "boom"
		case 4:
			return http.StatusOK, salesPage
		}
		return http.StatusNotFound, ""
	}}
	srv := p.server(t)
	c := newCoordinator(t, srv.URL, 3)

	summary, err := c.Run(context.Background(), []models.JurisdictionScan{{SWIS: "1", MinID: 1, MaxID: 4}})
	require.NoError(t, err)

	// 1 miss, 2 error (ignored), 3 miss: streak is 2, so 4 is still scanned.
	require.Len(t, summary.Records(), 1)
	require.Equal(t, 1, summary.Jurisdictions[0].Unexpected)
	require.False(t, summary.Jurisdictions[0].Abandoned)
}

func TestScanDiscardsIrrelevantPages(t *testing.T) {
	p := &portal{status: func(_ string, id int) (int, string) {
		return http.StatusOK, `<html><body><h2>Parcel – 1 Elm – 1.1 – SWIS: 1</h2></body></html>`
	}}
	srv := p.server(t)
	c := newCoordinator(t, srv.URL, 1)

	summary, err := c.Run(context.Background(), []models.JurisdictionScan{{SWIS: "1", MinID: 1, MaxID: 3}})
	require.NoError(t, err)
	require.Empty(t, summary.Records())
	require.Equal(t, 3, summary.Jurisdictions[0].Discarded)
}

func TestScanJurisdictionsIndependently(t *testing.T) {
	p := &portal{status: func(swis string, id int) (int, string) {
		if swis == "2" && id == 3 {
			return http.StatusOK, salesPage
		}
		return http.StatusNotFound, ""
	}}
	srv := p.server(t)
	c := newCoordinator(t, srv.URL, 2)

	summary, err := c.Run(context.Background(), []models.JurisdictionScan{
		{SWIS: "1", MinID: 1, MaxID: 5},
		{SWIS: "2", MinID: 1, MaxID: 5},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1/1", "1/2", "2/1", "2/2"}, p.requested[:4])
	require.Len(t, summary.Records(), 0)

	// jurisdiction 2 also stops at 2 misses; 3 stays unseen.
	require.True(t, summary.Jurisdictions[1].Abandoned)
	require.Equal(t, 2, summary.Abandoned())
	require.Equal(t, 4, summary.Requested())
}

func TestScanKeepsPagesPastTenMiB(t *testing.T) {
	// the sales table sits after 11 MiB of filler
	large := "<html><body><div>" + strings.Repeat("x", 11<<20) + "</div>" +
		strings.TrimPrefix(salesPage, "<html><body>")
	p := &portal{status: func(_ string, id int) (int, string) {
		if id == 1 {
			return http.StatusOK, large
		}
		return http.StatusNotFound, ""
	}}
	srv := p.server(t)
	c := newCoordinator(t, srv.URL, 1)

	summary, err := c.Run(context.Background(), []models.JurisdictionScan{{SWIS: "1", MinID: 1, MaxID: 2}})
	require.NoError(t, err)
	require.Zero(t, summary.Jurisdictions[0].Discarded)
	require.Equal(t, []models.Record{{
		"parcel_id":            "1",
		"swis":                 "1",
		"sales_hdr.Sale Date":  "2021-03-01",
		"sales_hdr.Sale Price": "$150,000",
	}}, summary.Records())
}

func TestScanParallelJurisdictions(t *testing.T) {
	p := &portal{status: func(swis string, id int) (int, string) {
		if id%2 == 0 {
			return http.StatusOK, salesPage
		}
		return http.StatusNotFound, ""
	}}
	srv := p.server(t)

	scraper, err := NewScraper(ScraperOptions{})
	require.NoError(t, err)
	c, err := NewCoordinator(scraper, CoordinatorOptions{
		BaseURL:       srv.URL,
		NotFoundLimit: 2,
		Workers:       3,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	scans := []models.JurisdictionScan{
		{SWIS: "1", MinID: 1, MaxID: 6},
		{SWIS: "2", MinID: 1, MaxID: 6},
		{SWIS: "3", MinID: 1, MaxID: 6},
	}
	summary, err := c.Run(context.Background(), scans)
	require.NoError(t, err)

	records := summary.Records()
	require.Len(t, records, 9)
	for i, r := range records {
		require.Equal(t, strconv.Itoa(i/3+1), r[models.FieldSWIS])
	}
	require.EqualValues(t, 18, scraper.Requests())
}

func TestScanEmptyJurisdictions(t *testing.T) {
	c := newCoordinator(t, "http://127.0.0.1:1", 1)
	summary, err := c.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, summary.Records())
}

func TestScanTransportFailureIsPerID(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newCoordinator(t, base, 1)
	summary, err := c.Run(context.Background(), []models.JurisdictionScan{{SWIS: "1", MinID: 1, MaxID: 3}})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Jurisdictions[0].Failed)
	require.False(t, summary.Jurisdictions[0].Abandoned)
}

func TestScanCancelled(t *testing.T) {
	p := &portal{status: func(string, int) (int, string) { return http.StatusNotFound, "" }}
	srv := p.server(t)

	scraper, err := NewScraper(ScraperOptions{Delay: time.Hour})
	require.NoError(t, err)
	c, err := NewCoordinator(scraper, CoordinatorOptions{BaseURL: srv.URL, NotFoundLimit: 100}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = c.Run(ctx, []models.JurisdictionScan{{SWIS: "1", MinID: 1, MaxID: 10}})
	require.Error(t, err)
	var terr *TransportError
	require.False(t, errors.As(err, &terr))
	require.Len(t, p.requested, 1)
}

func TestNewCoordinatorRejectsZeroLimit(t *testing.T) {
	scraper, err := NewScraper(ScraperOptions{})
	require.NoError(t, err)
	_, err = NewCoordinator(scraper, CoordinatorOptions{NotFoundLimit: 0}, nil)
	require.Error(t, err)
}
