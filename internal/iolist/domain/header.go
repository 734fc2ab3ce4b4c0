package iolist

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Header is the grouping record for one ingested IO List file.
type Header struct {
	ID        int64
	UUID      string
	HullNo    string
	IMO       string
	DateKey   string
	FileName  string
	ItemCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the identifying tuple.
func (h *Header) Validate() error {
	if h == nil {
		return errors.New("iolist: nil header")
	}
	if h.HullNo == "" {
		return errors.New("iolist: empty hull number")
	}
	if h.IMO == "" {
		return errors.New("iolist: empty IMO number")
	}
	if h.DateKey == "" {
		return errors.New("iolist: empty date key")
	}
	return nil
}

// dateKeyLayout is the ingestion-time key, e.g. 20260125_093000.
const dateKeyLayout = "20060102_150405"

// FormatDateKey renders the UTC date key for an ingestion time.
func FormatDateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

// filenamePattern matches an H-prefixed hull token followed, anywhere later
// in the name, by an IMO-prefixed number, e.g. H2567_IMO9991862_IOList.xlsx.
var filenamePattern = regexp.MustCompile(`(?i)H(\d+).*?IMO(\d+)`)

// ParseFilename extracts the hull and IMO tokens from an uploaded file name.
// The tokens are normalized to upper-case prefixes. A trailing date in the
// name is cosmetic and ignored.
func ParseFilename(name string) (hullNo, imo string, err error) {
	base := name
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	match := filenamePattern.FindStringSubmatch(base)
	if match == nil {
		return "", "", &FilenameParseError{Name: name}
	}
	return "H" + match[1], "IMO" + match[2], nil
}
