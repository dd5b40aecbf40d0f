package main

import (
	"fmt"
	"time"

	"saasan/internal/middleware"
	"saasan/internal/services"

	"github.com/spf13/cobra"
)

// tokenCommand mints a bearer token for local testing and operator use.
func tokenCommand() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the given actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := services.Role(role)
			if !r.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if subject == "" {
				return fmt.Errorf("--sub is required")
			}
			tok, err := middleware.SignToken([]byte(cfg.Auth.JWTSecret), subject, r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "actor id")
	cmd.Flags().StringVar(&role, "role", string(services.RoleCitizen), "citizen, investigator, moderator or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
