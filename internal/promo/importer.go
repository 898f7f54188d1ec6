package promo

import (
	"context"
	"fmt"
	"sync"

	"bookshop/internal/repository"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

const defaultBatchSize = 500

// Importer bulk loads promo definitions from files into the promo_codes table.
type Importer struct {
	loader    Loader
	repo      repository.PromoRepository
	batchSize int
	logger    zerolog.Logger
}

// ImportResult summarises an import run.
type ImportResult struct {
	Files    int `json:"files"`
	Codes    int `json:"codes"`
	Upserted int `json:"upserted"`
}

// NewImporter creates an importer. batchSize <= 0 uses the default.
func NewImporter(loader Loader, repo repository.PromoRepository, batchSize int, logger zerolog.Logger) *Importer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Importer{
		loader:    loader,
		repo:      repo,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "promo-importer").Logger(),
	}
}

// Import loads every path concurrently and upserts the merged definitions.
// When the same code appears in several files the later path wins. Nothing is
// written if any file fails to load.
func (i *Importer) Import(ctx context.Context, paths []string) (ImportResult, error) {
	type loadResult struct {
		index int
		set   Set
		err   error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for idx, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			set, err := i.loader.Load(ctx, path)
			resultChan <- loadResult{index: index, set: set, err: err}
		}(idx, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	var errs error
	merged := newMapSet(1024)
	for idx, result := range results {
		if result.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to load promo file %s: %w", paths[idx], result.err))
			continue
		}
		merged.Merge(result.set)
	}
	if errs != nil {
		return ImportResult{Files: len(paths)}, errs
	}

	res := ImportResult{Files: len(paths), Codes: merged.Size()}
	codes := merged.Codes()
	for start := 0; start < len(codes); start += i.batchSize {
		end := min(start+i.batchSize, len(codes))

		n, err := i.repo.Upsert(ctx, codes[start:end])
		res.Upserted += n
		if err != nil {
			return res, fmt.Errorf("failed to upsert promo codes: %w", err)
		}
	}

	i.logger.Info().
		Int("files", res.Files).
		Int("codes", res.Codes).
		Int("upserted", res.Upserted).
		Msg("promo import completed")

	return res, nil
}
