// Command leagueops serves cached fantasy league data and the operator API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "leagueops",
		Short:         "Caching gateway for the fantasy sports API",
		Long:          "Serve fantasy league queries through a rate-governed, regime-aware cache with an operator API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")

	rootCmd.AddCommand(
		serveCmd(&configFile),
		validateCmd(&configFile),
		tokenCmd(&configFile),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
