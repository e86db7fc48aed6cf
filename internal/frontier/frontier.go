package frontier

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"parcel-harvester/pkg/models"
)

// DetailURL builds the detail page address for one parcel.
func DetailURL(baseURL string, parcelID int, swis string) string {
	q := url.Values{}
	q.Set("swis", swis)
	return fmt.Sprintf("%s/PROSParcel/Parcel/%d?%s", strings.TrimRight(baseURL, "/"), parcelID, q.Encode())
}

// Outcome classifies one detail page response for streak tracking.
type Outcome int

const (
	Found Outcome = iota
	NotFound
	Other
)

// IDFrontier hands out the parcel IDs of one jurisdiction in ascending order
// and decides when the rest of the range should be abandoned.
//
// The not-found streak assumes unallocated IDs cluster at the tail of the
// range; a later parcel after a long enough gap is not visited.
type IDFrontier struct {
	scan    models.JurisdictionScan
	baseURL string
	limit   int

	next      int
	streak    int
	abandoned bool
}

// NewIDFrontier returns a frontier over scan. limit is the number of
// consecutive not-found responses that abandons the range and must be >= 1.
func NewIDFrontier(baseURL string, scan models.JurisdictionScan, limit int) (*IDFrontier, error) {
	if limit < 1 {
		return nil, fmt.Errorf("not-found limit must be at least 1, got %d", limit)
	}
	return &IDFrontier{
		scan:    scan,
		baseURL: baseURL,
		limit:   limit,
		next:    scan.MinID,
	}, nil
}

// Next returns the next ID and its detail URL, or false once the range is
// exhausted or abandoned.
func (f *IDFrontier) Next() (int, string, bool) {
	if f.abandoned || f.next > f.scan.MaxID {
		return 0, "", false
	}
	id := f.next
	f.next++
	return id, DetailURL(f.baseURL, id, f.scan.SWIS), true
}

// Observe feeds back the outcome of the ID last returned by Next.
// Other outcomes leave the streak untouched.
func (f *IDFrontier) Observe(o Outcome) {
	switch o {
	case Found:
		f.streak = 0
	case NotFound:
		f.streak++
		if f.streak >= f.limit {
			f.abandoned = true
		}
	}
}

// Streak is the current run of consecutive not-found responses.
func (f *IDFrontier) Streak() int {
	return f.streak
}

// Abandoned reports whether the streak limit cut the range short.
func (f *IDFrontier) Abandoned() bool {
	return f.abandoned
}

// Remaining is the number of IDs that will not be requested, for reporting.
func (f *IDFrontier) Remaining() int {
	if f.next > f.scan.MaxID {
		return 0
	}
	return f.scan.MaxID - f.next + 1
}

// ParseScans turns SWIS codes into jurisdiction scans sharing one ID range.
// Duplicated codes are dropped so no ID space is walked twice.
func ParseScans(codes []string, minID, maxID int) ([]models.JurisdictionScan, error) {
	if minID > maxID {
		return nil, fmt.Errorf("min id %d is above max id %d", minID, maxID)
	}
	seen := map[string]bool{}
	var scans []models.JurisdictionScan
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		if _, err := strconv.Atoi(c); err != nil {
			return nil, fmt.Errorf("swis code %q is not numeric", c)
		}
		seen[c] = true
		scans = append(scans, models.JurisdictionScan{SWIS: c, MinID: minID, MaxID: maxID})
	}
	return scans, nil
}
