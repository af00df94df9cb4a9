package cmd

import (
	"fmt"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/internal/outwriter"
	"github.com/huangsam/buildwatch/internal/repostore"
	"github.com/spf13/cobra"
)

// dbCmd focused on repository store maintenance.
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the repository store",
	Long: `Manage the store that holds per-repository compilation records.

Supported backends: MongoDB (default), MySQL, PostgreSQL, SQLite, or memory

Subcommands:
  status  - Show store statistics and connection info
  clear   - Remove all records
  migrate - Run SQL schema migrations

Examples:
  # Check store status
  buildwatch db status --db-config database-config.json

  # Bring a SQL store to the latest schema
  buildwatch db migrate`,
}

// dbStatusCmd shows store status.
var dbStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display store statistics and connection details",
	Args:    cobra.NoArgs,
	PreRunE: storeCommandSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := requireStore()
		if err != nil {
			return fmt.Errorf("failed to get store status: %w", err)
		}
		status, err := store.GetStatus(rootCtx)
		if err != nil {
			return fmt.Errorf("failed to get store status: %w", err)
		}
		outwriter.PrintStoreStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// dbClearCmd removes every record.
var dbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all repository records",
	Long: `Delete every repository record from the configured store.

WARNING: This action cannot be undone.

Examples:
  buildwatch db clear --db-config database-config.json`,
	Args:    cobra.NoArgs,
	PreRunE: storeCommandSetup,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := requireStore()
		if err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		if err := store.Clear(rootCtx); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		cmd.Println("Repository store cleared successfully.")
		return nil
	},
}

// dbMigrateCmd runs schema migrations on SQL stores.
var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema migrations for a SQL repository store",
	Long: `Apply or roll back the schema migrations of a SQL repository store. Each
collection keeps its own version table named <collection>_migrations.

Examples:
  # Migrate to the latest version
  buildwatch db migrate

  # Roll back everything
  buildwatch db migrate --target-version 0`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return sharedSetup(rootCtx, cmd, nil)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		sc, err := contract.LoadStoreConfig(cfg.DBConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load store config: %w", err)
		}
		targetVersion, _ := cmd.Flags().GetInt("target-version")
		if err := repostore.Migrate(sc, targetVersion, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		return nil
	},
}
