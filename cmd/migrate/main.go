package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var (
		postgresURL    string
		migrationsPath string
	)

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back the storefront database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&postgresURL, "database", os.Getenv("POSTGRES_URL"), "postgres connection URL (default $POSTGRES_URL)")
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "path", envOr("MIGRATIONS_PATH", "file://migrations"), "migrations source URL")

	open := func() (*migrate.Migrate, error) {
		if postgresURL == "" {
			return nil, errors.New("POSTGRES_URL environment variable is required")
		}
		return migrate.New(migrationsPath, postgresURL)
	}

	rootCmd.AddCommand(upCmd(logger, open), downCmd(logger, open), versionCmd(logger, open))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type opener func() (*migrate.Migrate, error)

func upCmd(logger *slog.Logger, open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			err = m.Up()
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("no pending migrations")
				return nil
			}
			if err != nil {
				return err
			}
			logger.Info("migrations applied successfully")
			return nil
		},
	}
}

func downCmd(logger *slog.Logger, open opener) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			err = m.Steps(-steps)
			if errors.Is(err, migrate.ErrNoChange) {
				logger.Info("no migrations to rollback")
				return nil
			}
			if err != nil {
				return err
			}
			logger.Info("migration rolled back successfully", slog.Int("steps", steps))
			return nil
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	return cmd
}

func versionCmd(logger *slog.Logger, open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				logger.Info("no migrations applied yet")
				return nil
			}
			if err != nil {
				return err
			}
			logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
