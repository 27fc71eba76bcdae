package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/observability"
)

var (
	gapsVertical    string
	gapsTop         int
	gapsDatabaseURL string
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Print the library gap report",
	Long:  `Prints unresolved library gaps ordered by priority, either across every vertical or for a single one.`,
	RunE:  runGapsCmd,
}

func init() {
	gapsCmd.Flags().StringVar(&gapsVertical, "vertical", "", "Restrict the report to one vertical")
	gapsCmd.Flags().IntVar(&gapsTop, "top", 10, "Number of gaps to show per vertical")
	gapsCmd.Flags().StringVar(&gapsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(gapsCmd)
}

func runGapsCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	databaseURL := gapsDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	report, err := gaps.BuildReport(ctx, database, gapsVertical, gapsTop)
	if err != nil {
		return fmt.Errorf("failed to build gap report: %w", err)
	}

	observability.NewPrinter(os.Stdout).PrintGapReport(report)
	return nil
}
