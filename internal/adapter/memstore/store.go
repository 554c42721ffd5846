// Package memstore keeps stations, products and bulletins in process memory.
// It backs dry runs and tests, and mirrors the relational store's rules:
// unique filenames, dimension rows required before facts, fill-if-empty
// dimension upserts and all-or-nothing batches.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

// ErrInjected is returned by batches that hit a failure set up with FailOn or FailNext.
var ErrInjected = errors.New("injected batch failure")

// Store is an in-memory implementation of the pipeline storage contract.
type Store struct {
	mu        sync.Mutex
	stations  map[string]domain.Station
	products  map[string]domain.Product
	bulletins map[string]domain.BulletinFile
	order     []string

	failOn    map[string]bool
	failNext  int
	loadErr   error
	saveErr   error
	batchHits int
}

func New() *Store {
	return &Store{
		stations:  make(map[string]domain.Station),
		products:  make(map[string]domain.Product),
		bulletins: make(map[string]domain.BulletinFile),
		failOn:    make(map[string]bool),
	}
}

// FailOn makes every batch containing filename fail after staging its rows.
func (s *Store) FailOn(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[filename] = true
}

// FailNext makes the next n batches fail.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// FailLoads makes every Load call return err.
func (s *Store) FailLoads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// FailSaves makes every dimension save return err.
func (s *Store) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// BatchCalls reports how many times WriteBatch ran.
func (s *Store) BatchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchHits
}

func (s *Store) LoadFilenames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return slices.Clone(s.order), nil
}

func (s *Store) LoadStations(_ context.Context) ([]domain.Station, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]domain.Station, 0, len(s.stations))
	for _, st := range s.stations {
		out = append(out, st)
	}
	return out, nil
}

func (s *Store) LoadProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

// SaveStation inserts st or fills the blank attributes of the stored row.
func (s *Store) SaveStation(_ context.Context, st domain.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cur, ok := s.stations[st.Code]
	if !ok {
		s.stations[st.Code] = st
		return nil
	}
	cur.FillMissing(st.StationInfo)
	cur.Touch(st.LastSeen)
	s.stations[st.Code] = cur
	return nil
}

// SaveProduct inserts p or fills the blank attributes of the stored row.
func (s *Store) SaveProduct(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cur, ok := s.products[p.Code]
	if !ok {
		s.products[p.Code] = p
		return nil
	}
	cur.FillMissing(p.ProductInfo)
	cur.Touch(p.LastSeen)
	s.products[p.Code] = cur
	return nil
}

// WriteBatch stages every row and only publishes them when the whole batch
// succeeds. Filenames already present are reported as duplicates.
func (s *Store) WriteBatch(_ context.Context, b domain.Batch) (domain.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchHits++

	var res domain.BatchResult
	staged := make(map[string]domain.BulletinFile, len(b.Bulletins))
	stagedOrder := make([]string, 0, len(b.Bulletins))
	for _, f := range b.Bulletins {
		if _, ok := s.stations[f.Originator]; !ok {
			return domain.BatchResult{}, fmt.Errorf("bulletin %s: unknown station %q", f.Filename, f.Originator)
		}
		if _, ok := s.products[f.ProductCode]; !ok {
			return domain.BatchResult{}, fmt.Errorf("bulletin %s: unknown product %q", f.Filename, f.ProductCode)
		}
		_, stored := s.bulletins[f.Filename]
		_, dup := staged[f.Filename]
		if stored || dup {
			res.Duplicates = append(res.Duplicates, f.Filename)
			continue
		}
		staged[f.Filename] = f
		stagedOrder = append(stagedOrder, f.Filename)
	}

	if s.failNext > 0 {
		s.failNext--
		return domain.BatchResult{}, ErrInjected
	}
	for name := range staged {
		if s.failOn[name] {
			return domain.BatchResult{}, fmt.Errorf("%w: %s", ErrInjected, name)
		}
	}

	for _, name := range stagedOrder {
		s.bulletins[name] = staged[name]
	}
	s.order = append(s.order, stagedOrder...)
	for code, t := range b.StationSeen {
		st := s.stations[code]
		st.Touch(t)
		s.stations[code] = st
	}
	for code, t := range b.ProductSeen {
		p := s.products[code]
		p.Touch(t)
		s.products[code] = p
	}
	res.Inserted = len(stagedOrder)
	return res, nil
}

// Wipe deletes every row.
func (s *Store) Wipe(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.stations)
	clear(s.products)
	clear(s.bulletins)
	s.order = nil
	return nil
}

// Bulletins returns the stored bulletins in commit order.
func (s *Store) Bulletins() []domain.BulletinFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BulletinFile, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.bulletins[name])
	}
	return out
}

func (s *Store) Station(code string) (domain.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stations[code]
	return st, ok
}

func (s *Store) Product(code string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[code]
	return p, ok
}

// Counts returns the number of stations, products and bulletins.
func (s *Store) Counts() (stations, products, bulletins int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stations), len(s.products), len(s.bulletins)
}
