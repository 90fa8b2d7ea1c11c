package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dynatable/internal/app"
	"dynatable/internal/backup"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Database backups",
	}
	cmd.AddCommand(newBackupRunCmd(), newBackupListCmd())
	return cmd
}

func newBackupRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Snapshot the database into the configured file store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			writeDB, readDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			a, err := app.New(cmd.Context(), app.Deps{
				Cfg:     cfg,
				WriteDB: writeDB,
				ReadDB:  readDB,
				Logger:  quietLogger(),
			})
			if err != nil {
				return err
			}
			a.Backup.OnBackup.Bind(func(e *backup.Event) error {
				fmt.Printf("Backup written: %s (%d bytes)\n", e.Name, e.Size)
				return nil
			})
			return a.Backup.Run(cmd.Context())
		},
	}
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			writeDB, readDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer writeDB.Close() //nolint:errcheck
			defer readDB.Close()  //nolint:errcheck

			a, err := app.New(cmd.Context(), app.Deps{
				Cfg:     cfg,
				WriteDB: writeDB,
				ReadDB:  readDB,
				Logger:  quietLogger(),
			})
			if err != nil {
				return err
			}
			names, err := a.Store.List(cmd.Context(), "backups")
			if err != nil {
				return err
			}

			if isJSONOutput(cmd) {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"backups": names})
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}
