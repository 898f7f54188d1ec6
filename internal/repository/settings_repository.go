package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type settingsRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSettingsRepository creates a new PostgreSQL-backed settings repository.
func NewSettingsRepository(pool *pgxpool.Pool, logger zerolog.Logger) SettingsRepository {
	return &settingsRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "settings").Logger(),
	}
}

// GetAll returns every stored setting keyed by name.
func (r *settingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query settings")
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}

	return values, nil
}
