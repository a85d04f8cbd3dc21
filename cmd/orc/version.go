package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is overridden by ldflags at release build time.
	Version = "0.1.0"
	// Build can be set via ldflags at compile time.
	Build = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{"version": Version, "build": Build})
			return
		}
		fmt.Printf("orc version %s (%s)\n", Version, Build)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
