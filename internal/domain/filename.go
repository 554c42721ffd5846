package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	filenamePrefix = "A_"
	filenameSuffix = ".TXT"

	// timestampLayout is the layout of the 14-digit transmission time.
	timestampLayout = "20060102150405"

	// fallbackField replaces Day, Hour and Minute when the filename's time
	// groups are not a valid calendar time.
	fallbackField = "00"
)

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("invalid bulletin filename")

// ParseError reports a filename that does not follow the bulletin grammar.
type ParseError struct {
	Filename string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Filename, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// The message id may itself contain hyphens; version and product code are the
// last two hyphen-separated fields.
var filenamePattern = regexp.MustCompile(
	`^A_([A-Z0-9]+)([A-Z0-9]{4})(\d{6})_C_([A-Z0-9]+)_(\d{14})_([0-9-]+)-(\d+)-([A-Z0-9]+)\.TXT$`,
)

// ParseFilename extracts bulletin metadata from name. Either every field is
// returned or a *ParseError; there is no partial result.
func ParseFilename(name string) (BulletinMetadata, error) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return BulletinMetadata{}, &ParseError{Filename: name, Reason: mismatchReason(name)}
	}

	ddhhmm := m[3]
	md := BulletinMetadata{
		WMOHeader:   m[1],
		Originator:  m[2],
		Day:         ddhhmm[0:2],
		Hour:        ddhhmm[2:4],
		Minute:      ddhhmm[4:6],
		CommID:      m[4],
		MessageID:   m[6],
		Version:     m[7],
		ProductCode: m[8],
	}

	ts, tsOK := parseTimestamp(m[5])
	var src time.Time
	srcOK := false
	if tsOK {
		src, srcOK = civilTime(ts.Year(), int(ts.Month()), atoi(md.Day), atoi(md.Hour), atoi(md.Minute), 0)
	}
	if !tsOK || !srcOK {
		now := clock.Now().UTC()
		md.BulletinTimestamp = now
		md.SourceDateTime = now
		md.Day, md.Hour, md.Minute = fallbackField, fallbackField, fallbackField
		md.TimestampFallback = true
		return md, nil
	}

	md.BulletinTimestamp = ts
	md.SourceDateTime = src
	return md, nil
}

// FormatFilename builds the filename for m. It is the inverse of ParseFilename
// for metadata whose timestamps are valid.
func FormatFilename(m BulletinMetadata) string {
	var b strings.Builder
	b.WriteString(filenamePrefix)
	b.WriteString(m.WMOHeader)
	b.WriteString(m.Originator)
	b.WriteString(m.Day)
	b.WriteString(m.Hour)
	b.WriteString(m.Minute)
	b.WriteString("_C_")
	b.WriteString(m.CommID)
	b.WriteByte('_')
	b.WriteString(m.BulletinTimestamp.UTC().Format(timestampLayout))
	b.WriteByte('_')
	b.WriteString(m.MessageID)
	b.WriteByte('-')
	b.WriteString(m.Version)
	b.WriteByte('-')
	b.WriteString(m.ProductCode)
	b.WriteString(filenameSuffix)
	return b.String()
}

func parseTimestamp(s string) (time.Time, bool) {
	return civilTime(atoi(s[0:4]), atoi(s[4:6]), atoi(s[6:8]), atoi(s[8:10]), atoi(s[10:12]), atoi(s[12:14]))
}

// civilTime builds a UTC time and reports whether the components were already
// normalized, so month 13 or 31 April are rejected rather than rolled over.
func civilTime(year, month, day, hour, minute, sec int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	ok := t.Year() == year && int(t.Month()) == month && t.Day() == day &&
		t.Hour() == hour && t.Minute() == minute && t.Second() == sec
	return t, ok
}

// atoi parses a run of ASCII digits already validated by filenamePattern.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func mismatchReason(name string) string {
	switch {
	case !strings.HasPrefix(name, filenamePrefix):
		return "missing A_ prefix"
	case !strings.HasSuffix(name, filenameSuffix):
		return "missing .TXT extension"
	case !strings.Contains(name, "_C_"):
		return "missing _C_ separator"
	default:
		return "fields do not match the bulletin grammar"
	}
}
