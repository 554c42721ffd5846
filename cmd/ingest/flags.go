package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/emwin-ingest/internal/adapter/memstore"
	"github.com/couchcryptid/emwin-ingest/internal/adapter/sqlstore"
	"github.com/couchcryptid/emwin-ingest/internal/config"
	"github.com/couchcryptid/emwin-ingest/internal/pipeline"
)

// errUsage means the flag package already printed what went wrong.
var errUsage = errors.New("usage")

type runFlags struct {
	wipe bool
	yes  bool
}

// parseFlags applies command-line overrides to cfg. Environment values are the
// flag defaults, so an unset flag keeps them.
func parseFlags(cfg *config.Config, args []string, stderr io.Writer) (runFlags, error) {
	var rf runFlags
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: ingest [flags] <directory>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "bulletins committed per transaction")
	fs.IntVar(&cfg.PreviewLength, "preview-length", cfg.PreviewLength, "characters of content kept as preview")
	fs.BoolVar(&rf.wipe, "wipe", false, "delete all existing stations, products and bulletins first")
	fs.BoolVar(&rf.yes, "yes", false, "skip the wipe confirmation prompt")
	fs.BoolVar(&cfg.EnrichEnabled, "enrich", cfg.EnrichEnabled, "look up unknown station metadata online")
	fs.DurationVar(&cfg.EnrichTimeout, "enrich-timeout", cfg.EnrichTimeout, "timeout per station lookup request")
	fs.DurationVar(&cfg.EnrichRateLimit, "enrich-rate-limit", cfg.EnrichRateLimit, "minimum delay between station lookup requests")
	fs.IntVar(&cfg.EnrichNegativeLimit, "enrich-negative-limit", cfg.EnrichNegativeLimit, "unknown stations tolerated before enrichment switches off")
	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "YAML file of station and product defaults")
	fs.StringVar(&cfg.RejectReport, "reject-report", cfg.RejectReport, "write rejected files to this CSV")
	fs.StringVar(&cfg.DatabaseDriver, "driver", cfg.DatabaseDriver, "storage driver: postgres, mysql or memory")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "database connection string")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve health and metrics on this address during the run")
	dryRun := fs.Bool("dry-run", false, "ingest into memory only; nothing is persisted")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return rf, err
		}
		return rf, errUsage
	}
	switch fs.NArg() {
	case 0:
	case 1:
		cfg.IngestDir = fs.Arg(0)
	default:
		fs.Usage()
		return rf, errUsage
	}
	if cfg.IngestDir == "" {
		fs.Usage()
		return rf, errUsage
	}
	if *dryRun {
		cfg.DatabaseDriver = config.DriverMemory
	}
	return rf, nil
}

type ingestStore interface {
	pipeline.Store
	Wipe(ctx context.Context) error
	Close() error
}

type memoryStore struct{ *memstore.Store }

func (memoryStore) Close() error { return nil }

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ingestStore, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Info("using in-memory storage, nothing will be persisted")
		return memoryStore{memstore.New()}, nil
	}
	s, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// confirmWipe asks the operator to type "wipe".
func confirmWipe(in io.Reader, out io.Writer, driver string) bool {
	fmt.Fprintf(out, "This deletes every station, product and bulletin in the %s database.\nType \"wipe\" to continue: ", driver)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "wipe"
}
