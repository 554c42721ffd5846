// Command ingest loads a directory of EMWIN bulletin files into the bulletin
// database, creating and enriching station and product rows as it goes.
//
//	ingest [flags] <directory>
//
// Exit status is 0 when the run completes, 1 on a fatal error and 130 when
// the run was interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/emwin-ingest/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/emwin-ingest/internal/adapter/kafka"
	"github.com/couchcryptid/emwin-ingest/internal/adapter/rejects"
	"github.com/couchcryptid/emwin-ingest/internal/adapter/seed"
	"github.com/couchcryptid/emwin-ingest/internal/adapter/stationinfo"
	"github.com/couchcryptid/emwin-ingest/internal/config"
	"github.com/couchcryptid/emwin-ingest/internal/observability"
	"github.com/couchcryptid/emwin-ingest/internal/pipeline"
)

const (
	exitOK        = 0
	exitFatal     = 1
	exitCancelled = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stderr))
}

func run(args []string, stdin io.Reader, stderr io.Writer) int {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitFatal
	}
	fl, err := parseFlags(cfg, args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFatal
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		return exitFatal
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage unavailable", "driver", cfg.DatabaseDriver, "error", err)
		return exitFatal
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("storage close error", "error", err)
		}
	}()

	if fl.wipe {
		if !fl.yes && !confirmWipe(stdin, stderr, cfg.DatabaseDriver) {
			logger.Info("wipe not confirmed, nothing ingested")
			return exitFatal
		}
		if err := store.Wipe(ctx); err != nil {
			logger.Error("wipe failed", "error", err)
			return exitFatal
		}
		logger.Info("existing data wiped", "driver", cfg.DatabaseDriver)
	}

	defaults, err := seed.Load(cfg.SeedFile)
	if err != nil {
		logger.Error("failed to load seed file", "error", err)
		return exitFatal
	}

	var opts []pipeline.Option
	if cfg.EnrichEnabled {
		opts = append(opts, pipeline.WithStationLookup(stationinfo.NewFromConfig(cfg, logger, metrics)))
		logger.Info("station enrichment enabled",
			"timeout", cfg.EnrichTimeout,
			"rate_limit", cfg.EnrichRateLimit,
			"negative_limit", cfg.EnrichNegativeLimit,
		)
	} else {
		logger.Info("station enrichment disabled")
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithPublisher(pub))
		logger.Info("bulletin publishing enabled", "topic", cfg.KafkaTopic)
	}
	if cfg.RejectReport != "" {
		report, err := rejects.Create(cfg.RejectReport)
		if err != nil {
			logger.Error("failed to open reject report", "error", err)
			return exitFatal
		}
		defer func() {
			if err := report.Close(); err != nil {
				logger.Error("reject report close error", "error", err)
			}
			logger.Info("reject report written", "path", cfg.RejectReport, "rows", report.Rows())
		}()
		opts = append(opts, pipeline.WithRejectSink(report))
	}

	p := pipeline.New(store, pipeline.Settings{
		BatchSize:         cfg.BatchSize,
		BatchRetryDepth:   cfg.BatchRetryDepth,
		EnrichMaxAttempts: cfg.EnrichMaxAttempts,
		FlushTimeout:      cfg.ShutdownTimeout,
		Defaults:          defaults,
	}, logger, metrics, opts...)

	var (
		result pipeline.Report
		runErr error
	)
	g, gctx := errgroup.WithContext(ctx)

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		result, runErr = p.Run(gctx, pipeline.Options{
			Dir:           cfg.IngestDir,
			PreviewLength: cfg.PreviewLength,
			ProgressEvery: cfg.ProgressEvery,
		})
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("ingestion aborted", "error", err)
		return exitFatal
	}
	code := exitCode(result, runErr)
	var fe *pipeline.FatalError
	if errors.As(runErr, &fe) {
		logger.Error("fatal error", "stage", fe.Stage, "exit_code", code)
	} else if code != exitOK {
		logger.Warn("ingestion stopped early", "exit_code", code)
	}
	return code
}

// exitCode maps a finished run to the process exit status. The pipeline has
// already logged the report.
func exitCode(r pipeline.Report, err error) int {
	switch {
	case err != nil:
		return exitFatal
	case r.Cancelled:
		return exitCancelled
	default:
		return exitOK
	}
}
