package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dynatable/internal/token"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify HS256 tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(), newTokenVerifyCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			claims := token.Issue(subject, cfg.TokenIssuer, cfg.TokenAudience, ttl)
			signed, err := claims.Sign([]byte(cfg.JWTSecret))
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (user id)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newTokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			claims, err := token.Verify(args[0], []byte(cfg.JWTSecret),
				cfg.TokenIssuer, cfg.TokenAudience)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}
}
