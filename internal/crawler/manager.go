package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"parcel-harvester/internal/extract"
	"parcel-harvester/internal/frontier"
	"parcel-harvester/pkg/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CoordinatorOptions is the enumeration policy.
type CoordinatorOptions struct {
	BaseURL string
	// NotFoundLimit consecutive 404s abandon the rest of a jurisdiction.
	NotFoundLimit int
	// Markers guard extraction: a found page containing none is discarded.
	Markers []string
	// Workers > 1 scans that many jurisdictions at once. IDs inside one
	// jurisdiction are always walked sequentially.
	Workers int
}

// Coordinator drives the brute-force scan of parcel IDs.
type Coordinator struct {
	scraper *Scraper
	opts    CoordinatorOptions
	log     *zap.Logger
}

// JurisdictionResult is what one jurisdiction scan produced.
type JurisdictionResult struct {
	Scan       models.JurisdictionScan
	Records    []models.Record
	Requested  int
	NotFound   int
	Discarded  int
	Unexpected int
	Failed     int
	Abandoned  bool
	Skipped    int
}

// Summary aggregates a run across jurisdictions.
type Summary struct {
	Jurisdictions []JurisdictionResult
}

// Records flattens the per-jurisdiction records in jurisdiction order.
func (s Summary) Records() []models.Record {
	var out []models.Record
	for _, j := range s.Jurisdictions {
		out = append(out, j.Records...)
	}
	return out
}

// Requested is the number of detail pages requested.
func (s Summary) Requested() int {
	n := 0
	for _, j := range s.Jurisdictions {
		n += j.Requested
	}
	return n
}

// Abandoned counts jurisdictions that ended on the not-found streak.
func (s Summary) Abandoned() int {
	n := 0
	for _, j := range s.Jurisdictions {
		if j.Abandoned {
			n++
		}
	}
	return n
}

func NewCoordinator(scraper *Scraper, opts CoordinatorOptions, log *zap.Logger) (*Coordinator, error) {
	if scraper == nil {
		return nil, errors.New("coordinator needs a scraper")
	}
	if opts.NotFoundLimit < 1 {
		return nil, fmt.Errorf("not-found limit must be at least 1, got %d", opts.NotFoundLimit)
	}
	if opts.Markers == nil {
		opts.Markers = extract.DefaultMarkers
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{scraper: scraper, opts: opts, log: log}, nil
}

// Run scans every jurisdiction. Per-ID failures are logged and skipped; the
// only error is a cancelled context, in which case nothing is returned.
func (c *Coordinator) Run(ctx context.Context, scans []models.JurisdictionScan) (Summary, error) {
	results := make([]JurisdictionResult, len(scans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, scan := range scans {
		g.Go(func() error {
			res, err := c.ScanJurisdiction(gctx, scan)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summary{Jurisdictions: results}, nil
}

// ScanJurisdiction walks one jurisdiction's ID range in ascending order.
func (c *Coordinator) ScanJurisdiction(ctx context.Context, scan models.JurisdictionScan) (JurisdictionResult, error) {
	log := c.log.With(zap.String("swis", scan.SWIS))
	log.Info("scanning jurisdiction", zap.Int("min_id", scan.MinID), zap.Int("max_id", scan.MaxID))

	ids, err := frontier.NewIDFrontier(c.opts.BaseURL, scan, c.opts.NotFoundLimit)
	if err != nil {
		return JurisdictionResult{}, err
	}

	res := JurisdictionResult{Scan: scan}
	for {
		id, link, ok := ids.Next()
		if !ok {
			break
		}

		res.Requested++
		page, err := c.scraper.Get(ctx, link)
		if err != nil {
			var terr *TransportError
			if !errors.As(err, &terr) {
				// limiter wait aborted: the run is being cancelled
				return JurisdictionResult{}, err
			}
			res.Failed++
			log.Warn("request failed", zap.Int("parcel_id", id), zap.Error(err))
			ids.Observe(frontier.Other)
			continue
		}

		switch page.StatusCode {
		case http.StatusOK:
			ids.Observe(frontier.Found)
			record, ok := c.handleFound(log, id, scan.SWIS, page)
			if !ok {
				res.Discarded++
				continue
			}
			res.Records = append(res.Records, record)
		case http.StatusNotFound:
			res.NotFound++
			ids.Observe(frontier.NotFound)
		default:
			res.Unexpected++
			ids.Observe(frontier.Other)
			log.Warn("skipping parcel", zap.Error(&UnexpectedStatusError{URL: link, StatusCode: page.StatusCode}))
		}
	}

	res.Abandoned = ids.Abandoned()
	res.Skipped = ids.Remaining()
	if res.Abandoned {
		log.Info("consecutive not-found limit reached, moving on",
			zap.Int("streak", ids.Streak()),
			zap.Int("skipped_ids", res.Skipped))
	}
	log.Info("jurisdiction done",
		zap.Int("records", len(res.Records)),
		zap.Int("requested", res.Requested),
		zap.Int("not_found", res.NotFound),
		zap.Int("unexpected", res.Unexpected),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (c *Coordinator) handleFound(log *zap.Logger, id int, swis string, page *models.FetchedPage) (models.Record, bool) {
	if !extract.Relevant(page.Body, c.opts.Markers) {
		log.Debug("page has no target sections", zap.Int("parcel_id", id))
		return nil, false
	}

	ex, err := extract.Parse(page.Body)
	if err != nil {
		log.Warn("unreadable parcel page", zap.Int("parcel_id", id), zap.Error(err))
		return nil, false
	}
	for _, skip := range ex.Skips {
		log.Debug("extraction skip", zap.Int("parcel_id", id), zap.Stringer("skip", skip))
	}

	ex.Record.Tag(id, swis)
	log.Info("found parcel", zap.Int("parcel_id", id), zap.Int("fields", len(ex.Record)))
	return ex.Record, true
}
