// Package gaps tracks products the research phase keeps surfacing that the
// reference library cannot satisfy, so library maintainers know what to add
// next.
package gaps

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/research"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

// gapMatchThreshold is the library match score below which a candidate
// counts as a gap. Deliberately looser than the curation threshold: a shaky
// match is still worth flagging to library maintainers.
const gapMatchThreshold = 70.0

// MatchFunc scores a candidate against the library, returning the best score
// found. Injected so this package stays decoupled from the matcher's home.
type MatchFunc func(ctx context.Context, name, brand string, library []db.LibraryProduct) float64

// Store is the persistence surface the gap agent needs.
type Store interface {
	ListProductsByVertical(ctx context.Context, vertical string) ([]db.LibraryProduct, error)
	UpsertGap(ctx context.Context, gap *db.LibraryGap) error
	ListGaps(ctx context.Context, filters db.GapFilters) ([]db.LibraryGap, error)
	CountGapsByVertical(ctx context.Context) (map[string]int, error)
	CountGapsSince(ctx context.Context, vertical string, since time.Time) (int, error)
}

// Entry is one gap observation from the current run.
type Entry struct {
	NormalizedName string  `json:"normalized_name"`
	DisplayName    string  `json:"display_name"`
	BrandGuess     string  `json:"brand_guess,omitempty"`
	Vertical       string  `json:"vertical"`
	Occurrences    int     `json:"occurrences"`
	BestMatchScore float64 `json:"best_match_score"`
	Priority       float64 `json:"priority"`
}

// Result summarizes gap analysis for one vertical.
type Result struct {
	Vertical        verticals.Vertical `json:"vertical"`
	Entries         []Entry            `json:"entries"`
	NewThisRun      int                `json:"new_this_run"`
	TotalUnresolved int                `json:"total_unresolved"`
	Errors          []string           `json:"errors,omitempty"`
}

// Agent records library gaps. It rescores every candidate against the
// library itself rather than reusing curation's verdicts, so gap analysis
// stays correct even when curation is skipped or its threshold changes.
type Agent struct {
	store   Store
	match   MatchFunc
	dryRun  bool
	verbose bool
}

// NewAgent creates a gap agent.
func NewAgent(store Store, match MatchFunc, dryRun, verbose bool) *Agent {
	return &Agent{store: store, match: match, dryRun: dryRun, verbose: verbose}
}

// Analyze finds candidates the library cannot satisfy and upserts them into
// the gap backlog. Individual upsert failures are collected, not fatal.
func (a *Agent) Analyze(ctx context.Context, runID uuid.UUID, v verticals.Vertical, candidates []research.Candidate) (*Result, error) {
	result := &Result{Vertical: v}
	started := time.Now()

	library, err := a.store.ListProductsByVertical(ctx, string(v))
	if err != nil {
		return nil, fmt.Errorf("failed to load product library for %s: %w", v, err)
	}

	weight := gapWeight(v)

	for _, c := range candidates {
		score := a.match(ctx, c.Name, c.BrandGuess, library)
		if score >= gapMatchThreshold {
			continue
		}

		// One run counts as one sighting no matter how many sources mentioned
		// the product; mention volume lives on the candidate, not the backlog.
		entry := Entry{
			NormalizedName: c.NormalizedName,
			DisplayName:    c.Name,
			BrandGuess:     c.BrandGuess,
			Vertical:       string(v),
			Occurrences:    1,
			BestMatchScore: score,
			Priority:       weight,
		}

		if !a.dryRun {
			gap := &db.LibraryGap{
				NormalizedName:  entry.NormalizedName,
				DisplayName:     entry.DisplayName,
				BrandGuess:      entry.BrandGuess,
				Vertical:        entry.Vertical,
				OccurrenceCount: 1,
				Priority:        weight,
				FirstSeenRunID:  runID,
			}
			if err := a.store.UpsertGap(ctx, gap); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("failed to record gap %q: %v", c.Name, err))
				continue
			}
			// Cumulative figures come back from the upsert.
			entry.Occurrences = gap.OccurrenceCount
			entry.Priority = gap.Priority
		}

		result.Entries = append(result.Entries, entry)
	}

	sort.SliceStable(result.Entries, func(i, j int) bool {
		if result.Entries[i].Priority != result.Entries[j].Priority {
			return result.Entries[i].Priority > result.Entries[j].Priority
		}
		return result.Entries[i].NormalizedName < result.Entries[j].NormalizedName
	})

	if !a.dryRun {
		a.fillCounts(ctx, result, string(v), started)
	}

	if a.verbose {
		log.Printf("[%s] gap analysis: %d gaps from %d candidates", v, len(result.Entries), len(candidates))
	}
	return result, nil
}

// fillCounts adds the backlog-wide figures. Count failures degrade the
// report rather than the run.
func (a *Agent) fillCounts(ctx context.Context, result *Result, vertical string, started time.Time) {
	counts, err := a.store.CountGapsByVertical(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to count gap backlog: %v", err))
	} else {
		result.TotalUnresolved = counts[vertical]
	}

	newCount, err := a.store.CountGapsSince(ctx, vertical, started)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to count new gaps: %v", err))
	} else {
		result.NewThisRun = newCount
	}
}

// Report summarizes the gap backlog across verticals, or for one vertical
// when set. topN bounds how many gaps each vertical lists.
type Report struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	Verticals   map[string]VerticalReport `json:"verticals"`
}

// VerticalReport is one vertical's slice of the gap backlog.
type VerticalReport struct {
	Unresolved int             `json:"unresolved"`
	TopGaps    []db.LibraryGap `json:"top_gaps"`
}

// BuildReport assembles the backlog report from stored gaps.
func BuildReport(ctx context.Context, store Store, vertical string, topN int) (*Report, error) {
	if topN <= 0 {
		topN = 10
	}

	counts, err := store.CountGapsByVertical(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{GeneratedAt: time.Now().UTC(), Verticals: make(map[string]VerticalReport)}

	names := make([]string, 0, len(counts))
	if vertical != "" {
		names = append(names, vertical)
	} else {
		for name := range counts {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	for _, name := range names {
		top, err := store.ListGaps(ctx, db.GapFilters{Vertical: name, Limit: topN})
		if err != nil {
			return nil, err
		}
		report.Verticals[name] = VerticalReport{Unresolved: counts[name], TopGaps: top}
	}
	return report, nil
}

// gapWeight returns the vertical's gap weight, defaulting to 1 for unknown
// verticals so analysis never drops observations.
func gapWeight(v verticals.Vertical) float64 {
	cfg, err := verticals.Get(v)
	if err != nil {
		return 1.0
	}
	return cfg.GapWeight
}
