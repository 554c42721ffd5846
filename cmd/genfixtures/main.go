// Command genfixtures writes a directory of synthetic EMWIN bulletin files for
// load testing and local runs of the ingest command. Output is deterministic
// for a given -seed.
//
// Usage:
//
//	go run ./cmd/genfixtures -out /tmp/emwin -count 20000 -invalid 0.01
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

var (
	stations = []string{"KWBC", "KOKX", "KBOX", "KLWX", "KMFL", "PHFO", "TJSJ", "EGRR", "CWAO"}
	headers  = []string{"WWUS81", "FXUS61", "FPUS51", "NOUS41", "SPCMESO1234"}
	products = []string{"STPTPTCN", "AFDOKX", "SPSBOX", "ZFPLWX", "RWRMFL", "PNSHFO"}
)

type options struct {
	count   int
	invalid float64
	start   time.Time
	seed    uint64
}

func main() {
	out := flag.String("out", "", "directory to write bulletin files into (created if missing)")
	count := flag.Int("count", 1000, "number of valid bulletin files")
	invalid := flag.Float64("invalid", 0.01, "fraction of extra files with malformed names")
	start := flag.String("start", "2025-05-17T00:00:00Z", "timestamp of the first bulletin (RFC 3339)")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		log.Fatal("missing required flag: -out")
	}
	ts, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.Fatalf("invalid -start: %v", err)
	}

	n, err := generate(*out, options{count: *count, invalid: *invalid, start: ts.UTC(), seed: *seed})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d files to %s", n, *out)
}

// generate writes opts.count valid bulletins plus roughly opts.invalid of that
// many malformed names, returning the total written.
func generate(dir string, opts options) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	written := 0
	for i := range opts.count {
		ts := opts.start.Add(time.Duration(i) * 7 * time.Second)
		station := stations[rng.IntN(len(stations))]
		product := products[rng.IntN(len(products))]
		m := domain.BulletinMetadata{
			WMOHeader:         headers[rng.IntN(len(headers))],
			Originator:        station,
			Day:               ts.Format("02"),
			Hour:              ts.Format("15"),
			Minute:            ts.Format("04"),
			CommID:            "KWIN",
			MessageID:         fmt.Sprintf("%d", 100000+i),
			Version:           fmt.Sprintf("%d", 1+rng.IntN(3)),
			ProductCode:       product,
			BulletinTimestamp: ts,
		}
		if err := writeBulletin(dir, domain.FormatFilename(m), body(m, rng)); err != nil {
			return written, err
		}
		written++

		if rng.Float64() < opts.invalid {
			name := fmt.Sprintf("A_MALFORMED%06d.TXT", i)
			if err := writeBulletin(dir, name, "NOT A BULLETIN\n"); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func writeBulletin(dir, name, content string) error {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil { //nolint:gosec // fixtures are world-readable
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func body(m domain.BulletinMetadata, rng *rand.Rand) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s%s%s\n", m.WMOHeader, m.Originator, m.Day, m.Hour, m.Minute)
	fmt.Fprintf(&b, "%s\n\n", m.ProductCode)
	for range 2 + rng.IntN(6) {
		b.WriteString("SYNTHETIC BULLETIN TEXT FOR INGESTION TESTING. NOT FOR OPERATIONAL USE.\n")
	}
	b.WriteString("$$\n")
	return b.String()
}
