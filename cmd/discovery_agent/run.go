package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/observability"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run a full discovery pass end-to-end",
	Long: `Runs the discovery pipeline: research -> curation -> gap analysis -> finalizing.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values. Secrets come from the environment (DATABASE_URL, GEMINI_API_KEY, YOUTUBE_API_KEY, GOOGLE_SEARCH_API_KEY, GOOGLE_SEARCH_CX).`,
	RunE: runDiscoveryCmd,
}

var (
	runConfigPath    string
	runVerticals     []string
	runMaxSources    int
	runMaxConcurrent int
	runQuotaBudget   int
	runMinConfidence int
	runMinItems      int
	runNoPublish     bool
	runDryRun        bool
	runVerbose       bool
	runAPIKey        string
	runDatabaseURL   string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringSliceVar(&runVerticals, "verticals", nil, "Verticals to process (default: all configured verticals)")
	runCommand.Flags().IntVar(&runMaxSources, "max-sources", 0, "Maximum sources per vertical")
	runCommand.Flags().IntVar(&runMaxConcurrent, "max-concurrent", 0, "Maximum verticals researched concurrently")
	runCommand.Flags().IntVar(&runQuotaBudget, "quota-budget", 0, "External API quota budget in units")
	runCommand.Flags().IntVar(&runMinConfidence, "min-confidence", 0, "Minimum extraction confidence for publishable items")
	runCommand.Flags().IntVar(&runMinItems, "min-items", 0, "Minimum item count to publish a bag")
	runCommand.Flags().BoolVar(&runNoPublish, "no-publish", false, "Assemble bags for the report without publishing")
	runCommand.Flags().BoolVar(&runDryRun, "dry-run", false, "Run without writing anything to the database")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runDiscoveryCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.RunConfig
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("verticals") {
		cfg.Verticals = runVerticals
	}
	if cmd.Flags().Changed("max-sources") {
		cfg.MaxSourcesPerVertical = runMaxSources
	}
	if cmd.Flags().Changed("max-concurrent") {
		cfg.MaxConcurrentVerticals = runMaxConcurrent
	}
	if cmd.Flags().Changed("quota-budget") {
		cfg.QuotaBudgetUnits = runQuotaBudget
	}
	if cmd.Flags().Changed("min-confidence") {
		cfg.MinConfidenceToPublish = runMinConfidence
	}
	if cmd.Flags().Changed("min-items") {
		cfg.MinItemCountToPublish = runMinItems
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = runDryRun
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("api-key") {
		cfg.GeminiAPIKey = runAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Publishing is on unless explicitly disabled. Bool fields cannot be
	// merged from defaults, so the decision lives here.
	cfg.AutoPublish = !runNoPublish

	// Step 3: Apply defaults for unset values, then fill secrets from env
	cfg = cfg.MergeWithDefaults(config.DefaultRunConfig())
	cfg.FromEnv()

	// Step 4: Validate required fields
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if cfg.YouTubeAPIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY environment variable is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	report, err := executeRun(ctx, cfg)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintRunReport(report)
	return nil
}
