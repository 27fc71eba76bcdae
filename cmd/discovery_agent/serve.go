package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/server"
)

var (
	servePort      int
	serveNoPublish bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for triggering discovery runs and reading runs, bags, and the gap report.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoPublish, "no-publish", false, "Assemble bags for the report without publishing")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Every run triggered through the API starts from these defaults.
	// Secrets come from the environment only; request bodies cannot
	// override them.
	baseRun := config.DefaultRunConfig()
	baseRun.FromEnv()
	baseRun.AutoPublish = !serveNoPublish

	if baseRun.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if baseRun.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if baseRun.YouTubeAPIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY environment variable is required")
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	database, err := db.Connect(ctx, baseRun.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	srv := server.New(server.Config{Port: servePort, BaseRun: baseRun}, server.Deps{
		Runs:     database,
		Bags:     database,
		Gaps:     database,
		Launcher: executeRun,
		JWT:      server.NewJWTService(jwtConfig),
	})

	return srv.Start()
}
