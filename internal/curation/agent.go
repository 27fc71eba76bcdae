package curation

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/gear-discovery/internal/adapters"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/research"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

// Store is the persistence surface the curation agent needs.
type Store interface {
	ListProductsByVertical(ctx context.Context, vertical string) ([]db.LibraryProduct, error)
	EnsureSystemAccount(ctx context.Context) (*db.Account, error)
	PublishBag(ctx context.Context, bag *db.CuratedBag, items []db.BagItem) error
}

// Options tunes one curation pass.
type Options struct {
	MinConfidence int  // candidates below this score are dropped
	MinItemCount  int  // bags with fewer items are held, not published
	AutoPublish   bool // publish qualifying bags; off assembles without writing
	DryRun        bool // no writes at all
	Verbose       bool
}

// DefaultOptions returns the standard curation settings.
func DefaultOptions() Options {
	return Options{
		MinConfidence: 60,
		MinItemCount:  3,
		AutoPublish:   true,
	}
}

// Result is the curation output for one vertical.
type Result struct {
	Vertical     verticals.Vertical `json:"vertical"`
	Bag          *db.CuratedBag     `json:"bag,omitempty"`
	Items        []db.BagItem       `json:"items,omitempty"`
	Published    bool               `json:"published"`
	SkipReason   string             `json:"skip_reason,omitempty"`
	MatchedCount int                `json:"matched_count"`
	Errors       []string           `json:"errors,omitempty"`
}

// Agent assembles a curated bag from research candidates: library matching,
// link resolution, image selection, ordering, and the publish decision.
type Agent struct {
	store   Store
	matcher *Matcher
	images  *ImagePicker
	links   adapters.LinkResolver
	opts    Options
	now     func() time.Time
}

// NewAgent creates a curation agent.
func NewAgent(store Store, matcher *Matcher, images *ImagePicker, links adapters.LinkResolver, opts Options) *Agent {
	if matcher == nil {
		matcher = NewMatcher(0)
	}
	return &Agent{
		store:   store,
		matcher: matcher,
		images:  images,
		links:   links,
		opts:    opts,
		now:     time.Now,
	}
}

// Curate builds the bag for one vertical from the research candidates.
// sourceCount is how many sources produced usable text, for the bag
// description. Per-item failures (links, images) degrade the item, never the
// bag; only store failures error out.
func (a *Agent) Curate(ctx context.Context, runID uuid.UUID, v verticals.Vertical, candidates []research.Candidate, sourceCount int) (*Result, error) {
	result := &Result{Vertical: v}

	library, err := a.store.ListProductsByVertical(ctx, string(v))
	if err != nil {
		return nil, fmt.Errorf("failed to load product library for %s: %w", v, err)
	}

	eligible := a.filterEligible(candidates)
	if a.opts.Verbose {
		log.Printf("[%s] curation: %d/%d candidates above confidence %d",
			v, len(eligible), len(candidates), a.opts.MinConfidence)
	}

	items := a.buildItems(ctx, eligible, library, result)

	if len(items) == 0 {
		result.SkipReason = "no qualifying items"
		return result, nil
	}

	// The bag is always assembled for the report; only the publish decision
	// controls whether it reaches the store.
	now := a.now()
	title := verticals.BagTitle(v, now)
	bag := &db.CuratedBag{
		Code:        BagCode(title),
		Title:       title,
		Description: verticals.BagDescription(v, sourceCount),
		Vertical:    string(v),
		RunID:       runID,
	}
	result.Bag = bag
	result.Items = items

	if a.opts.DryRun {
		result.SkipReason = "dry run"
		return result, nil
	}
	if len(items) < a.opts.MinItemCount {
		result.SkipReason = fmt.Sprintf("held for review: %d items, need %d to publish", len(items), a.opts.MinItemCount)
		return result, nil
	}
	if !a.opts.AutoPublish {
		result.SkipReason = "held for review: auto-publish disabled"
		return result, nil
	}

	account, err := a.store.EnsureSystemAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve system account: %w", err)
	}
	bag.AccountID = account.ID
	bag.Published = true

	if err := a.store.PublishBag(ctx, bag, items); err != nil {
		return nil, fmt.Errorf("failed to publish bag %s: %w", bag.Code, err)
	}
	result.Published = true
	return result, nil
}

// filterEligible drops candidates below the confidence floor and orders the
// rest for display: most-mentioned first, name as tiebreak for determinism.
func (a *Agent) filterEligible(candidates []research.Candidate) []research.Candidate {
	var eligible []research.Candidate
	for _, c := range candidates {
		if c.Score >= a.opts.MinConfidence {
			eligible = append(eligible, c)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].MentionCount != eligible[j].MentionCount {
			return eligible[i].MentionCount > eligible[j].MentionCount
		}
		return eligible[i].Name < eligible[j].Name
	})
	return eligible
}

func (a *Agent) buildItems(ctx context.Context, eligible []research.Candidate, library []db.LibraryProduct, result *Result) []db.BagItem {
	var items []db.BagItem
	for _, c := range eligible {
		match := a.matcher.BestMatch(ctx, c.Name, c.BrandGuess, library)
		if match.Matched {
			result.MatchedCount++
		}

		item := db.BagItem{
			Name:         c.Name,
			Brand:        c.BrandGuess,
			MentionCount: c.MentionCount,
			Confidence:   c.Score,
			Position:     len(items) + 1,
			Attribution:  attributionLine(c),
		}
		if match.Matched && match.Product != nil {
			id := match.Product.ID
			item.ProductID = &id
			if item.Brand == "" {
				item.Brand = match.Product.Brand
			}
		}

		links := a.resolveLinks(ctx, c, result)
		item.PrimaryURL = primaryLink(links)

		if a.images != nil {
			item.ImageURL = a.images.Pick(ctx, c.Name, item.Brand, match, links)
		}

		items = append(items, item)
	}
	return items
}

func (a *Agent) resolveLinks(ctx context.Context, c research.Candidate, result *Result) []adapters.CandidateLink {
	if a.links == nil {
		return nil
	}
	links, err := a.links.ResolveLinks(ctx, c.Name, c.BrandGuess, c.Vertical, c.VintageHint)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("link resolution failed for %q: %v", c.Name, err))
		return nil
	}
	return links
}

// primaryLink picks the item's main purchase URL: the best affiliatable link
// when one exists, else the best link overall. Links arrive sorted by
// priority.
func primaryLink(links []adapters.CandidateLink) string {
	for _, l := range links {
		if l.Affiliatable {
			return l.URL
		}
	}
	if len(links) > 0 {
		return links[0].URL
	}
	return ""
}

func attributionLine(c research.Candidate) string {
	n := len(c.SourceIDs)
	if n <= 1 {
		return "Seen in 1 trending source this week"
	}
	return fmt.Sprintf("Seen in %d trending sources this week", n)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// BagCode derives the bag's URL code from its title. Deterministic, so the
// same vertical and ISO week always yields the same code and a rerun in the
// same week collides instead of double-publishing.
func BagCode(title string) string {
	code := strings.ToLower(title)
	code = nonSlugChars.ReplaceAllString(code, "-")
	return strings.Trim(code, "-")
}
