package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dynatable/internal/domain"
	"dynatable/internal/policy"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage row-level policies",
	}
	cmd.AddCommand(
		newPolicyListCmd(),
		newPolicyApplyCmd(),
		newPolicyEnableCmd(true),
		newPolicyEnableCmd(false),
	)
	return cmd
}

func newPolicyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <table>",
		Short: "List the enabled policies on a table",
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

			policies, err := policy.NewStore(readDB).PoliciesFor(cmd.Context(), args[0], domain.OpAll)
			if err != nil {
				return err
			}

			if isJSONOutput(cmd) {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"policies": policies})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOPERATION\tKIND\tUSING\tCHECK")
			for _, p := range policies {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.Name, p.Operation, p.Kind, deref(p.UsingExpr), deref(p.CheckExpr))
			}
			return w.Flush()
		},
	}
}

func newPolicyApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <file>",
		Short: "Apply a declarative YAML policy file",
		Long:  "Creates every policy from the file that does not already exist. Policies are matched by name, so repeated applies are safe.",
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

			f, err := policy.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			created, err := f.Apply(cmd.Context(), policy.NewStore(writeDB))
			if err != nil {
				return err
			}
			fmt.Printf("Applied %s: %d policy(ies) created, %d total declared\n",
				args[0], created, len(f.Policies))
			return nil
		},
	}
}

func newPolicyEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <name>", "Enable a policy"
	if !enable {
		use, short = "disable <name>", "Disable a policy without removing it"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
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

			if err := policy.NewStore(writeDB).SetEnabled(cmd.Context(), args[0], enable); err != nil {
				return err
			}
			state := "enabled"
			if !enable {
				state = "disabled"
			}
			fmt.Printf("Policy %q %s\n", args[0], state)
			return nil
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
