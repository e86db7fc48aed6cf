// Package extract turns a PROS parcel detail page into a flat record.
//
// Extraction is purely structural: every value is the trimmed text of a cell
// and nothing is coerced. Missing pieces of a page are reported as skips, not
// errors, so a partially rendered page still yields whatever it does carry.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"parcel-harvester/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// titleDelimiter separates the four parts of the detail page heading:
// "Parcel – <address> – <sbl> – SWIS: <code>".
const titleDelimiter = "–"

// SkipReason names the part of a page that could not be read.
type SkipReason string

const (
	SkipNoTitle        SkipReason = "no_title"
	SkipMalformedTitle SkipReason = "malformed_title"
	SkipNoSWISLabel    SkipReason = "no_swis_label"
	SkipMissingSection SkipReason = "missing_section"
)

// ExtractionSkip records a part of the page that was left out of the record.
type ExtractionSkip struct {
	Reason  SkipReason
	Section string
	Detail  string
}

func (s ExtractionSkip) String() string {
	if s.Section != "" {
		return fmt.Sprintf("%s (%s)", s.Reason, s.Section)
	}
	if s.Detail != "" {
		return fmt.Sprintf("%s: %q", s.Reason, s.Detail)
	}
	return string(s.Reason)
}

// Extraction is the result of parsing one page.
type Extraction struct {
	Record models.Record
	Skips  []ExtractionSkip
}

// Parse reads a detail page. The only error is an unreadable document;
// structural gaps end up in Extraction.Skips.
func Parse(body []byte) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse parcel page: %w", err)
	}
	return fromDocument(doc), nil
}

func fromDocument(doc *goquery.Document) Extraction {
	ex := Extraction{Record: models.Record{}}
	ex.header(doc)
	for _, section := range models.Sections {
		ex.section(doc, section)
	}
	return ex
}

func (ex *Extraction) skip(reason SkipReason, section, detail string) {
	ex.Skips = append(ex.Skips, ExtractionSkip{Reason: reason, Section: section, Detail: detail})
}

func (ex *Extraction) header(doc *goquery.Document) {
	h2 := doc.Find("h2").First()
	if h2.Length() == 0 {
		ex.skip(SkipNoTitle, "", "")
		return
	}

	title := strings.TrimSpace(h2.Text())
	parts := strings.Split(title, titleDelimiter)
	if len(parts) != 4 {
		ex.skip(SkipMalformedTitle, "", title)
		return
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	ex.Record[models.FieldAddress] = parts[1]
	ex.Record[models.FieldSBL] = parts[2]

	_, swis, ok := strings.Cut(parts[3], ":")
	if !ok {
		ex.skip(SkipNoSWISLabel, "", parts[3])
		return
	}
	ex.Record[models.FieldSWISHdr] = strings.TrimSpace(swis)
}

func (ex *Extraction) section(doc *goquery.Document, id string) {
	table := findSection(doc, id)
	if table == nil {
		ex.skip(SkipMissingSection, id, "")
		return
	}

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td")
		if cells.Length() != 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		ex.Record[strings.TrimSpace(models.SectionKey(id, label))] = value
	})
}

// findSection accepts either <table id=...> or a container <div id=...>
// holding the table.
func findSection(doc *goquery.Document, id string) *goquery.Selection {
	sel := "#" + id
	if t := doc.Find("table" + sel).First(); t.Length() > 0 {
		return t
	}
	if t := doc.Find("div" + sel).First().Find("table").First(); t.Length() > 0 {
		return t
	}
	return nil
}

// Relevant reports whether body carries at least one of the marker substrings.
// Pages without any marker are served but hold none of the wanted sections.
func Relevant(body []byte, markers []string) bool {
	for _, m := range markers {
		if bytes.Contains(body, []byte(m)) {
			return true
		}
	}
	return false
}

// DefaultMarkers is the guard used by the portal scan: the sales table is
// present on every page that carries any of the sections.
var DefaultMarkers = []string{`id="sales_hdr"`}
