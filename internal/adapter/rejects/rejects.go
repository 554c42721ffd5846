// Package rejects writes a CSV report of files that were counted but not
// ingested, one row per file with the stage that rejected it.
package rejects

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jszwec/csvutil"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// Report implements pipeline.RejectSink on a CSV stream.
type Report struct {
	mu     sync.Mutex
	w      *csv.Writer
	enc    *csvutil.Encoder
	closer io.Closer
	rows   int
}

// Create truncates path and writes the header row.
func Create(path string) (*Report, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create reject report: %w", err)
	}
	r, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// New writes the header row to w.
func New(w io.Writer) (*Report, error) {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(domain.Rejection{}); err != nil {
		return nil, fmt.Errorf("write reject header: %w", err)
	}
	return &Report{w: cw, enc: enc}, nil
}

func (r *Report) Reject(rej domain.Rejection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(rej); err != nil {
		return fmt.Errorf("write rejection %s: %w", rej.Filename, err)
	}
	r.rows++
	return nil
}

// Rows is the number of rejections written.
func (r *Report) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Close flushes buffered rows and closes the underlying file, if any.
func (r *Report) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("flush reject report: %w", err)
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
