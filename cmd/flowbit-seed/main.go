package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/migrations"
	"github.com/flowbit/flowbit/internal/observability"
	"github.com/flowbit/flowbit/internal/query/sqldb"
	"github.com/flowbit/flowbit/internal/seed"
	"github.com/flowbit/flowbit/internal/storage"
	s3store "github.com/flowbit/flowbit/internal/storage/s3"
)

func main() {
	source := flag.String("source", "", "local file or s3://bucket/key to load (.parquet or analytics JSON)")
	generate := flag.Int("generate", 0, "number of synthetic invoices to generate instead of reading -source")
	seedValue := flag.Int64("seed", 1, "seed for -generate")
	vendors := flag.Int("vendors", 8, "vendor cardinality for -generate")
	exportBucket := flag.String("export-bucket", "", "also write the records as Parquet to this bucket")
	migrate := flag.Bool("migrate", false, "apply pending migrations before loading")
	dryRun := flag.Bool("dry-run", false, "read or generate records without writing to the database")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("flowbit-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, options{
		source:       *source,
		generate:     *generate,
		seed:         *seedValue,
		vendors:      *vendors,
		exportBucket: *exportBucket,
		migrate:      *migrate,
		dryRun:       *dryRun,
	}); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type options struct {
	source       string
	generate     int
	seed         int64
	vendors      int
	exportBucket string
	migrate      bool
	dryRun       bool
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, opts options) error {
	records, err := loadRecords(ctx, cfg, opts)
	if err != nil {
		return err
	}
	logger.Info("seed_records_ready", slog.Int("records", len(records)))

	if opts.exportBucket != "" {
		store, err := s3store.Open(ctx, cfg.ObjectStore, opts.exportBucket)
		if err != nil {
			return fmt.Errorf("open export bucket: %w", err)
		}
		info, err := seed.Export(ctx, store, records, time.Now())
		if err != nil {
			return err
		}
		logger.Info("seed_exported",
			slog.String("uri", storage.Location{Bucket: store.Bucket(), Key: info.Key}.String()),
			slog.Int64("bytes", info.Size),
			slog.Time("last_modified", info.LastModified),
		)
	}
	if opts.dryRun {
		return nil
	}

	db, err := sqldb.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := sqldb.Ping(ctx, db); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if opts.migrate {
		applied, err := migrations.NewRunner().Up(ctx, db, 0)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations_applied", slog.Int("count", applied))
	}

	_, err = seed.NewLoader(db, logger).Load(ctx, records)
	return err
}

func loadRecords(ctx context.Context, cfg config.Config, opts options) ([]seed.Record, error) {
	switch {
	case opts.generate > 0 && opts.source != "":
		return nil, fmt.Errorf("-source and -generate are mutually exclusive")
	case opts.generate > 0:
		return seed.NewGenerator(opts.seed, opts.vendors).Records(opts.generate), nil
	case opts.source != "":
		// Source URIs carry a full key, so the configured export prefix does not apply.
		sourceCfg := cfg.ObjectStore
		sourceCfg.Prefix = ""
		sourceCfg.AutoCreateBucket = false
		opener := func(ctx context.Context, bucket string) (storage.ObjectStore, error) {
			return s3store.Open(ctx, sourceCfg, bucket)
		}
		return seed.ReadSource(ctx, opts.source, opener)
	default:
		return nil, fmt.Errorf("one of -source or -generate is required")
	}
}
