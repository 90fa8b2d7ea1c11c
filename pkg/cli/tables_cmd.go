package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dynatable/internal/catalog"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the user tables in the database",
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

			tables, err := catalog.NewReader(readDB).ListTables(cmd.Context())
			if err != nil {
				return err
			}

			if isJSONOutput(cmd) {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"tables": tables})
			}
			for _, t := range tables {
				fmt.Println(t)
			}
			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show a table's columns, keys, and policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			td, err := catalog.NewReader(readDB).Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if isJSONOutput(cmd) {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(td)
			}

			fmt.Printf("Table: %s (schema %s)\n\n", td.Name, td.Schema)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "POS\tNAME\tTYPE\tNULL\tPK\tFK")
			for _, c := range td.Columns {
				null := "yes"
				if c.IsNotNull {
					null = "no"
				}
				pk := ""
				if c.IsPrimaryKey {
					pk = fmt.Sprintf("%d", c.PrimaryKeyOrder)
				}
				fk := ""
				if c.ForeignKey != nil {
					fk = c.ForeignKey.ReferencesTable + "." + c.ForeignKey.ReferencesColumn
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					c.Position, c.Name, c.DeclaredType, null, pk, fk)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(td.Policies) > 0 {
				fmt.Printf("\nPolicies: %d enabled\n", len(td.Policies))
				for _, p := range td.Policies {
					fmt.Printf("  %s [%s/%s]\n", p.Name, p.Operation, p.Kind)
				}
			}
			return nil
		},
	}
}
