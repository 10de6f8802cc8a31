package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/config"
)

func validateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), *configFile, nil)
			if err != nil {
				return err
			}
			policy, err := cfg.Cache.Policy()
			if err != nil {
				return err
			}
			permanent := 0
			for _, r := range policy.Regimes {
				if r == cache.RegimePermanent {
					permanent++
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "configuration ok")
			fmt.Fprintf(out, "  cache: %d bytes, volatile ttl %s, %d permanent categories\n",
				cfg.Cache.MaxSizeBytes, policy.VolatileTTL, permanent)
			fmt.Fprintf(out, "  rate limit: %d calls per %s\n", cfg.RateLimit.MaxCalls, cfg.RateLimit.Window)
			fmt.Fprintf(out, "  admin: %s, %d api keys, jwt %t\n", cfg.Admin.Addr, len(cfg.Admin.APIKeys), cfg.Admin.JWTSecret != "")
			return nil
		},
	}
}
