package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mindvault/internal/config"
	transport "mindvault/internal/transport/http"
)

// NewTokenCmd prints a signed bearer token for local development.
func NewTokenCmd(configPath *string) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			token, err := auth.Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "user id to embed as the token subject")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
