// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkillForge Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/skillforge/skillforge/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL database.`,
		RunE:  runMigrate,
	}
	cmd.Flags().String("database-url", "", "PostgreSQL connection string (defaults to DATABASE_URL)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	databaseURL, err := cmd.Flags().GetString("database-url")
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url or DATABASE_URL)")
	}

	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // close error is secondary to migration outcome

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed successfully (version %d, dirty: %t)\n", version, dirty)
	return nil
}
