// Package main provides the entry point for the gear discovery agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "discovery_agent",
	Short: "Trending gear discovery and curation agent",
	Long:  "Discovery agent researches trending gear content per vertical, matches product mentions against the reference library, assembles weekly curated bags, and tracks library gaps.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
