package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/config"
)

func tokenCmd(configFile *string) *cobra.Command {
	var (
		principal string
		scopes    []string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator JWT signed with admin.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), *configFile, nil)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("admin.jwt_secret is not configured")
			}
			for _, s := range scopes {
				if s != auth.ScopeCacheRead && s != auth.ScopeCacheAdmin {
					return fmt.Errorf("unknown scope %q", s)
				}
			}
			token, err := auth.IssueToken([]byte(cfg.Admin.JWTSecret), principal, scopes, ttl, cfg.Admin.JWTIssuer)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "Operator name (sub claim)")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeCacheRead}, "Granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}
