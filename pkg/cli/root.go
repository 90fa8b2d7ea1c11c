// Package cli implements the dynatable administration CLI. All commands
// operate directly on the database file, not through the HTTP API.
package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"dynatable/internal/config"
	internaldb "dynatable/internal/db"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dynatable",
		Short:         "Dynamic table access engine CLI",
		Long:          "Administration commands for a dynatable database: inspect tables, manage row policies, issue tokens, and run backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("db", "", "path to the SQLite database file (default $DB_PATH or dynatable.sqlite)")
	rootCmd.PersistentFlags().String("output", "text", "output format: text or json")

	rootCmd.AddCommand(
		newTablesCmd(),
		newDescribeCmd(),
		newPolicyCmd(),
		newTokenCmd(),
		newBackupCmd(),
	)
	return rootCmd
}

// loadConfig resolves configuration for a command: env first, then the
// --db flag override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openDB opens the migrated database pool pair for one command
// invocation. The caller closes both pools.
func openDB(cfg *config.Config) (writeDB, readDB *sql.DB, err error) {
	writeDB, readDB, err = internaldb.OpenPair(cfg.DBPath, 2)
	if err != nil {
		return nil, nil, err
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		writeDB.Close() //nolint:errcheck
		readDB.Close()  //nolint:errcheck
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func isJSONOutput(cmd *cobra.Command) bool {
	output, _ := cmd.Flags().GetString("output")
	return output == "json"
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
