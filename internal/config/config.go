// Package config provides run configuration loading and validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

// RunConfig controls one discovery run. Zero values fall back to defaults
// via MergeWithDefaults; field constraints are enforced by Validate.
type RunConfig struct {
	// Verticals to research. Empty means all configured verticals.
	Verticals []string `json:"verticals,omitempty" validate:"omitempty,dive,min=1"`

	// Limits
	MaxSourcesPerVertical  int `json:"max_sources_per_vertical,omitempty" validate:"omitempty,min=1,max=50"`
	MaxConcurrentVerticals int `json:"max_concurrent_verticals,omitempty" validate:"omitempty,min=1,max=8"`
	MaxCandidatesPerSource int `json:"max_candidates_per_source,omitempty" validate:"omitempty,min=1,max=50"`
	QuotaBudgetUnits       int `json:"quota_budget_units,omitempty" validate:"omitempty,min=10"`

	// Publish gating
	MinConfidenceToPublish int `json:"min_confidence_to_publish,omitempty" validate:"omitempty,min=0,max=100"`
	MinItemCountToPublish  int `json:"min_item_count_to_publish,omitempty" validate:"omitempty,min=1"`
	LinkResolutionTopN     int `json:"link_resolution_top_n,omitempty" validate:"omitempty,min=1,max=20"`

	// Behavior
	AutoPublish bool `json:"auto_publish,omitempty"`
	DryRun      bool `json:"dry_run,omitempty"`
	Verbose     bool `json:"verbose,omitempty"`

	// Secrets and endpoints come from the environment, not the config file,
	// but may be set programmatically.
	DatabaseURL    string `json:"database_url,omitempty"`
	GeminiAPIKey   string `json:"-"`
	YouTubeAPIKey  string `json:"-"`
	SearchAPIKey   string `json:"-"`
	SearchEngineID string `json:"-"`
}

// DefaultRunConfig returns the standing defaults for unattended runs.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxSourcesPerVertical:  10,
		MaxConcurrentVerticals: 2,
		MaxCandidatesPerSource: 15,
		QuotaBudgetUnits:       400,
		MinConfidenceToPublish: 60,
		MinItemCountToPublish:  3,
		LinkResolutionTopN:     8,
	}
}

// LoadConfig loads run configuration from a JSON file.
func LoadConfig(path string) (*RunConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills secrets and the database URL from the environment. Values
// already present are kept.
func (c *RunConfig) FromEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.YouTubeAPIKey == "" {
		c.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if c.SearchAPIKey == "" {
		c.SearchAPIKey = os.Getenv("GOOGLE_SEARCH_API_KEY")
	}
	if c.SearchEngineID == "" {
		c.SearchEngineID = os.Getenv("GOOGLE_SEARCH_CX")
	}
}

var validate = validator.New()

// Validate checks field constraints and that every named vertical exists.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for _, v := range c.Verticals {
		if !verticals.IsValid(verticals.Vertical(v)) {
			return fmt.Errorf("config error: unknown vertical %q", v)
		}
	}

	return nil
}

// MergeWithDefaults returns a new RunConfig with zero-valued fields filled
// from defaults.
func (c *RunConfig) MergeWithDefaults(defaults RunConfig) RunConfig {
	result := *c

	if len(result.Verticals) == 0 {
		result.Verticals = defaults.Verticals
	}
	if result.MaxSourcesPerVertical == 0 {
		result.MaxSourcesPerVertical = defaults.MaxSourcesPerVertical
	}
	if result.MaxConcurrentVerticals == 0 {
		result.MaxConcurrentVerticals = defaults.MaxConcurrentVerticals
	}
	if result.MaxCandidatesPerSource == 0 {
		result.MaxCandidatesPerSource = defaults.MaxCandidatesPerSource
	}
	if result.QuotaBudgetUnits == 0 {
		result.QuotaBudgetUnits = defaults.QuotaBudgetUnits
	}
	if result.MinConfidenceToPublish == 0 {
		result.MinConfidenceToPublish = defaults.MinConfidenceToPublish
	}
	if result.MinItemCountToPublish == 0 {
		result.MinItemCountToPublish = defaults.MinItemCountToPublish
	}
	if result.LinkResolutionTopN == 0 {
		result.LinkResolutionTopN = defaults.LinkResolutionTopN
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ResolvedVerticals returns the verticals a run will process, defaulting to
// every configured vertical.
func (c *RunConfig) ResolvedVerticals() []verticals.Vertical {
	if len(c.Verticals) == 0 {
		return verticals.All()
	}
	out := make([]verticals.Vertical, 0, len(c.Verticals))
	for _, v := range c.Verticals {
		out = append(out, verticals.Vertical(v))
	}
	return out
}
