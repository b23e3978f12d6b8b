package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/smartfare/migrations"
)

func migrateCmd() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
		Long: `Apply, roll back or inspect the embedded schema migrations.

Examples:
  smartfare migrate up
  smartfare migrate down
  smartfare migrate status --database-url postgres://localhost/smartfare`,
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")

	openProvider := func(cmd *cobra.Command) (*goose.Provider, func(), error) {
		if dsn == "" {
			return nil, nil, errors.New("--database-url or DATABASE_URL is required")
		}
		db, err := openSQLDB(cmd.Context(), dsn)
		if err != nil {
			return nil, nil, err
		}
		provider, err := migrations.NewProvider(db)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("create migration provider: %w", err)
		}
		return provider, func() { db.Close() }, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, done, err := openProvider(cmd)
			if err != nil {
				return err
			}
			defer done()

			results, err := provider.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
			}
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %s (%s)\n", res.Source.Path, res.Duration.Round(time.Millisecond))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, done, err := openProvider(cmd)
			if err != nil {
				return err
			}
			defer done()

			res, err := provider.Down(cmd.Context())
			if err != nil {
				return fmt.Errorf("roll back migration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK   %s rolled back\n", res.Source.Path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, done, err := openProvider(cmd)
			if err != nil {
				return err
			}
			defer done()

			statuses, err := provider.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("read migration status: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tMIGRATION")
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
			}
			return tw.Flush()
		},
	})

	return cmd
}
