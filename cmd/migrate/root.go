package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"focusbubble/backend/internal/config"
	"focusbubble/backend/internal/db"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply the SQLite storage schema",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
		return runMigrate(configPath, logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(path string, logger zerolog.Logger) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Storage.Type != "sqlite" {
		logger.Info().Str("type", cfg.Storage.Type).Msg("Storage type has no migrations")
		return nil
	}

	database, err := db.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("path", cfg.Storage.Path).Strs("applied", applied).Msg("Migrations applied")
	return nil
}
