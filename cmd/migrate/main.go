package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rileydk/Pomodoro/internal/config"
	"github.com/Rileydk/Pomodoro/internal/db"
	"github.com/Rileydk/Pomodoro/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply SQLite migrations",
	SilenceUsage: true,
	RunE:         runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.Logging)

	database, err := db.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(cmd.Context(), database, cfg.Storage.MigrationsDir, logger)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().
		Int("applied", len(applied)).
		Str("path", cfg.Storage.SQLitePath).
		Msg("Migrations applied successfully")
	return nil
}
