package models

import (
	"fmt"
	"strconv"
)

// Injected identity fields. The extractor never writes these.
const (
	FieldParcelID = "parcel_id"
	FieldSWIS     = "swis"
)

// Header fields parsed from the detail page title.
const (
	FieldAddress = "address"
	FieldSBL     = "sbl"
	FieldSWISHdr = "swis_hdr"
)

// Sections lists the labeled tables pulled from a detail page, in page order.
var Sections = []string{
	"residential_building_hdr",
	"assessment_hdr",
	"property_description_hdr",
	"owner_information_hdr",
	"sales_hdr",
}

// Record is one parcel as a flat field -> value mapping. Values stay strings;
// typing happens at the presentation boundary.
type Record map[string]string

// SectionKey builds the namespaced key for a labeled row inside a section.
func SectionKey(section, label string) string {
	return section + "." + label
}

// Tag stamps the identity fields the enumeration driver owns.
func (r Record) Tag(parcelID int, swis string) {
	r[FieldParcelID] = strconv.Itoa(parcelID)
	r[FieldSWIS] = swis
}

// JurisdictionScan is one SWIS code and the closed ID interval to walk.
type JurisdictionScan struct {
	SWIS  string
	MinID int
	MaxID int
}

func (s JurisdictionScan) String() string {
	return fmt.Sprintf("%s[%d..%d]", s.SWIS, s.MinID, s.MaxID)
}
