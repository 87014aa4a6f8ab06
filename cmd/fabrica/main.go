// Package main provides the entry point for the Fabrica dataset generator.
package main

import (
	"fmt"
	"os"

	"github.com/TFMV/fabrica/logger"
	"github.com/TFMV/fabrica/version"
	"github.com/spf13/cobra"
)

// Main entry point for the Fabrica tool
func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "fabrica",
		Short: "Fabrica generates synthetic, referentially consistent datasets",
		Long: `Fabrica incrementally extends a set of CSV datasets (customers, orders,
order lines, returns, monthly inventory) up to the current date. Each run
determines the missing date range per dataset, fabricates rows that stay
valid against existing and same-run parent entities, and merges them into
the snapshots exactly once, on local disk or in an S3 bucket.`,
	}

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of Fabrica",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Fabrica v" + version.Version)
		},
	})

	// Add subcommands
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newServeCommand())

	defer logger.Sync()

	// Execute the command
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
