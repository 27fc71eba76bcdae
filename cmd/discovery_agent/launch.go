package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/gear-discovery/internal/adapters"
	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/curation"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/llm"
	"github.com/jonathan/gear-discovery/internal/orchestrator"
	"github.com/jonathan/gear-discovery/internal/research"
)

// executeRun assembles the full pipeline and runs it once. It is used both
// by the run command and as the server's run launcher, so every dependency
// is scoped to the run and released before returning.
func executeRun(ctx context.Context, cfg config.RunConfig) (*orchestrator.RunReport, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	llmClient, err := llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = llmClient.Close() }()

	set, err := buildAdapters(ctx, cfg, llmClient)
	if err != nil {
		return nil, err
	}

	quota := research.NewQuotaMeter(cfg.QuotaBudgetUnits)

	researchAgent := research.NewAgent(set, database, nil, quota, research.Options{
		MaxSources:             cfg.MaxSourcesPerVertical,
		MaxCandidatesPerSource: cfg.MaxCandidatesPerSource,
		DryRun:                 cfg.DryRun,
		Verbose:                cfg.Verbose,
	})

	matcher := curation.NewMatcher(0)
	curationAgent := curation.NewAgent(
		database,
		matcher,
		curation.NewImagePicker(set.Images, set.Pages, cfg.Verbose),
		set.Links,
		curation.Options{
			MinConfidence: cfg.MinConfidenceToPublish,
			MinItemCount:  cfg.MinItemCountToPublish,
			AutoPublish:   cfg.AutoPublish,
			DryRun:        cfg.DryRun,
			Verbose:       cfg.Verbose,
		},
	)

	// Gap analysis rescores against the library with the same matcher the
	// curation phase uses, so gap priorities stay consistent with what
	// curation actually failed to match.
	gapMatch := func(ctx context.Context, name, brand string, library []db.LibraryProduct) float64 {
		return matcher.BestMatch(ctx, name, brand, library).Score
	}
	gapAgent := gaps.NewAgent(database, gapMatch, cfg.DryRun, cfg.Verbose)

	orch := orchestrator.New(orchestrator.Deps{
		Store:    database,
		Research: researchAgent,
		Curation: curationAgent,
		Gaps:     gapAgent,
		Quota:    quota,
	}, cfg)

	return orch.Execute(ctx)
}

// buildAdapters wires the external service clients. Image search is
// optional: without search credentials the pipeline still runs and image
// selection falls back to library images and source page scraping.
func buildAdapters(ctx context.Context, cfg config.RunConfig, llmClient llm.Client) (*adapters.Set, error) {
	videos, err := adapters.NewYouTubeClient(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create video search client: %w", err)
	}

	set := &adapters.Set{
		Videos:      videos,
		Transcripts: adapters.NewTimedTextClient(),
		Pages:       adapters.NewWebPageReader(adapters.WithPageVerbose(cfg.Verbose)),
		Extractor:   adapters.NewGeminiExtractor(llmClient, llm.TierStandard),
		Links:       adapters.NewRetailLinkResolver(cfg.LinkResolutionTopN),
	}

	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		images, err := adapters.NewImageSearchClient(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
		if err != nil {
			return nil, fmt.Errorf("failed to create image search client: %w", err)
		}
		set.Images = images
	} else if cfg.Verbose {
		log.Printf("[adapters] image search credentials not set, skipping image search")
	}

	return set, nil
}
