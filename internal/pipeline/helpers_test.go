package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/emwin-ingest/internal/adapter/memstore"
	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

const (
	validFile   = "A_SPCMESO1234KWBC170115_C_KWIN_20250517011502_321540-2-STPTPTCN.TXT"
	invalidFile = "A_BADNAME.TXT"
	fileBody    = "WWUS81 KWBC 170115\n" +
		"SPOT FORECAST FOR THE RIDGE FIRE...NATIONAL WEATHER SERVICE WASHINGTON DC\n" +
		"ISSUED 115 AM EDT SAT MAY 17 2025\n" +
		"IF CONDITIONS BECOME UNREPRESENTATIVE, CONTACT THE NATIONAL WEATHER SERVICE.\n"
)

var baseTime = time.Date(2025, 5, 17, 1, 15, 2, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bulletinName builds a valid filename; seq orders names lexically.
func bulletinName(station, product string, seq int) string {
	return domain.FormatFilename(domain.BulletinMetadata{
		WMOHeader:         "WWUS81",
		Originator:        station,
		Day:               "17",
		Hour:              "01",
		Minute:            "15",
		CommID:            "KWIN",
		MessageID:         fmt.Sprintf("%06d", seq),
		Version:           "1",
		ProductCode:       product,
		BulletinTimestamp: baseTime.Add(time.Duration(seq) * time.Minute),
	})
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(fileBody), 0o644))
	}
}

// countingLookup returns canned results and counts calls per code.
type countingLookup struct {
	mu      sync.Mutex
	results map[string]domain.StationInfo
	errs    map[string]error
	err     error
	calls   map[string]int
	onCall  func()
}

func newCountingLookup() *countingLookup {
	return &countingLookup{
		results: make(map[string]domain.StationInfo),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (l *countingLookup) LookupStation(_ context.Context, code string) (domain.StationInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[code]++
	if l.onCall != nil {
		l.onCall()
	}
	if err, ok := l.errs[code]; ok {
		return domain.StationInfo{}, err
	}
	if l.err != nil {
		return domain.StationInfo{}, l.err
	}
	if info, ok := l.results[code]; ok {
		return info, nil
	}
	return domain.StationInfo{}, domain.ErrStationNotFound
}

func (l *countingLookup) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

type recordingSink struct {
	rejected []domain.Rejection
}

func (s *recordingSink) Reject(r domain.Rejection) error {
	s.rejected = append(s.rejected, r)
	return nil
}

type recordingPublisher struct {
	published []domain.BulletinFile
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, b []domain.BulletinFile) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, b...)
	return nil
}

// ctxStore honours cancellation on every write, the way a database driver
// does. onBatch runs inside WriteBatch before the context is checked; block
// makes WriteBatch wait for the context to end.
type ctxStore struct {
	*memstore.Store
	onBatch func()
	block   bool
}

func (s *ctxStore) SaveStation(ctx context.Context, st domain.Station) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.SaveStation(ctx, st)
}

func (s *ctxStore) SaveProduct(ctx context.Context, p domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.SaveProduct(ctx, p)
}

func (s *ctxStore) WriteBatch(ctx context.Context, b domain.Batch) (domain.BatchResult, error) {
	if s.onBatch != nil {
		s.onBatch()
	}
	if s.block {
		<-ctx.Done()
	}
	if err := ctx.Err(); err != nil {
		return domain.BatchResult{}, err
	}
	return s.Store.WriteBatch(ctx, b)
}
