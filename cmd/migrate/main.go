package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bookshop/internal/config"
	"bookshop/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|redo|reset")
	flag.Parse()

	if err := run(*cmd, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "migrate")
	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	logger.Info().Str("cmd", cmd).Msg("running migrations")
	if err := database.Migrate(ctx, pool, cmd, args...); err != nil {
		return err
	}
	logger.Info().Str("cmd", cmd).Msg("migrations finished")
	return nil
}
