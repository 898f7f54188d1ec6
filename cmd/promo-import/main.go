package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookshop/internal/config"
	"bookshop/internal/database"
	"bookshop/internal/promo"
	"bookshop/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	batch := flag.Int("batch", 0, "rows per upsert batch (0 uses the default)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-batch N] file.csv.gz [file.csv.gz ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Args(), *batch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(paths []string, batch int) error {
	_ = godotenv.Load()

	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "promo-import")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize promo loader with S3 and local fallback
	var s3Loader promo.Loader
	if cfg.S3.Enabled {
		s3Loader, err = promo.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	} else {
		logger.Info().Msg("using local file system for promo files (S3 disabled)")
	}
	loader := promo.NewFallbackLoader(s3Loader, promo.NewFileLoader(logger), cfg.S3.Prefix, logger)

	importer := promo.NewImporter(loader, repository.NewPromoRepository(pool, logger), batch, logger)
	res, err := importer.Import(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to import promo codes: %w", err)
	}

	fmt.Printf("Imported %d promo codes from %d files (%d rows upserted)\n", res.Codes, res.Files, res.Upserted)
	return nil
}
