// Package main is the storefront backend binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "storefront"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC health listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Merch storefront checkout and fulfillment relay",
		Long: `Serves the product catalog, turns client carts into hosted checkout
sessions and relays paid orders to the fulfillment backend.

Settings come from the environment, optionally layered over a YAML file
passed with --config.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Re-send orders parked on the dead-letter topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), configPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
