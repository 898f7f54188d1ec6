package promo

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for reading gzipped promo files from disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based promo loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "promo-loader").Logger(),
	}
}

// Load reads a gzipped promo CSV file and returns its definitions.
func (l *fileLoader) Load(ctx context.Context, filePath string) (Set, error) {
	l.logger.Info().Str("file", filePath).Msg("loading promo file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open promo file")
		return nil, fmt.Errorf("failed to open promo file %s: %w", filePath, err)
	}
	defer file.Close()

	set, err := readGzipCSV(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("error reading promo file")
		return nil, fmt.Errorf("error reading promo file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("codes_loaded", set.Size()).
		Msg("promo file loaded successfully")

	return set, nil
}
