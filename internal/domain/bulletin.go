package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// BulletinMetadata holds the fields recovered from a bulletin filename.
type BulletinMetadata struct {
	WMOHeader   string
	Originator  string
	Day         string
	Hour        string
	Minute      string
	CommID      string
	MessageID   string
	Version     string
	ProductCode string

	BulletinTimestamp time.Time
	SourceDateTime    time.Time

	// TimestampFallback is set when the filename's time groups did not form a
	// valid calendar time and both timestamps were taken from the clock.
	TimestampFallback bool
}

// BulletinFile is one ingested bulletin, keyed by Filename.
type BulletinFile struct {
	Filename     string    `json:"filename"`
	Path         string    `json:"path"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`

	WMOHeader   string `json:"wmo_header"`
	Originator  string `json:"originator"`
	CommID      string `json:"comm_id"`
	MessageID   string `json:"message_id"`
	Version     string `json:"version"`
	ProductCode string `json:"product_code"`

	BulletinTimestamp time.Time `json:"bulletin_timestamp"`
	SourceDateTime    time.Time `json:"source_datetime"`
	Day               string    `json:"day"`
	Hour              string    `json:"hour"`
	Minute            string    `json:"minute"`

	Preview          string `json:"preview"`
	ContentSizeBytes int64  `json:"content_size_bytes"`
	ReadFlag         bool   `json:"read_flag"`
}

// NewBulletinFile combines parsed metadata with file provenance.
func NewBulletinFile(m BulletinMetadata, path string, size int64, modified time.Time) BulletinFile {
	return BulletinFile{
		Filename:          filepath.Base(path),
		Path:              path,
		SizeBytes:         size,
		LastModified:      modified.UTC(),
		WMOHeader:         m.WMOHeader,
		Originator:        m.Originator,
		CommID:            m.CommID,
		MessageID:         m.MessageID,
		Version:           m.Version,
		ProductCode:       m.ProductCode,
		BulletinTimestamp: m.BulletinTimestamp,
		SourceDateTime:    m.SourceDateTime,
		Day:               m.Day,
		Hour:              m.Hour,
		Minute:            m.Minute,
		ContentSizeBytes:  size,
	}
}

// FileExtension returns the lower-cased extension without the dot.
func (b BulletinFile) FileExtension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(b.Filename), "."))
}

// IsText reports whether the bulletin is a plain-text product.
func (b BulletinFile) IsText() bool {
	return b.FileExtension() == "txt"
}

// AgeHours reports how long ago the bulletin was transmitted, relative to now.
func (b BulletinFile) AgeHours(now time.Time) float64 {
	return now.Sub(b.BulletinTimestamp).Hours()
}
