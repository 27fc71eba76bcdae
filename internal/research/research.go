package research

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/gear-discovery/internal/adapters"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

// Search windows. Trending content gets a long window ordered by view count;
// release coverage is short and recency-ordered; channel sweeps sit between.
const (
	trendingWindow    = 60 * 24 * time.Hour
	releaseWindow     = 14 * 24 * time.Hour
	channelWindow     = 30 * 24 * time.Hour
	processedLookback = 45 * 24 * time.Hour
	recentNamesWindow = 30 * 24 * time.Hour
)

// minUsableText is the shortest source text worth an extraction call.
const minUsableText = 80

// maxHashtagPages bounds how many hashtag pages one pass reads.
const maxHashtagPages = 2

// hashtagLookback is the dedup window for hashtag pages. Short on purpose:
// the page content turns over continuously, so only a rerun within the same
// week skips them.
const hashtagLookback = 6 * 24 * time.Hour

// Ledger is the persistence surface the research agent needs: the source
// dedup ledger plus recently discovered names for extraction awareness.
type Ledger interface {
	WasSourceProcessed(ctx context.Context, vertical, sourceType, externalID string, lookback time.Duration) (bool, error)
	RecordSource(ctx context.Context, rec *db.SourceRecord) error
	RecentDiscoveredNames(ctx context.Context, vertical string, window time.Duration, limit int) ([]string, error)
}

// Options tunes one research pass.
type Options struct {
	MaxSources             int
	MaxCandidatesPerSource int
	BatchSize              int           // sources processed per batch
	BatchDelay             time.Duration // pause between batches
	DryRun                 bool          // suppress ledger writes
	Verbose                bool
}

// DefaultOptions returns standing research options.
func DefaultOptions() Options {
	return Options{
		MaxSources:             10,
		MaxCandidatesPerSource: 15,
		BatchSize:              3,
		BatchDelay:             2 * time.Second,
	}
}

// Agent runs the research phase for one vertical.
type Agent struct {
	videos      adapters.VideoSearcher
	transcripts adapters.TranscriptFetcher
	pages       adapters.PageReader
	extractor   adapters.MentionExtractor
	ledger      Ledger
	scorer      Scorer
	quota       *QuotaMeter
	opts        Options
}

// NewAgent creates a research agent. A nil scorer gets the default.
func NewAgent(set *adapters.Set, ledger Ledger, scorer Scorer, quota *QuotaMeter, opts Options) *Agent {
	if scorer == nil {
		scorer = DefaultScorer{}
	}
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultOptions().MaxSources
	}
	if opts.MaxCandidatesPerSource <= 0 {
		opts.MaxCandidatesPerSource = DefaultOptions().MaxCandidatesPerSource
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = DefaultOptions().BatchDelay
	}
	return &Agent{
		videos:      set.Videos,
		transcripts: set.Transcripts,
		pages:       set.Pages,
		extractor:   set.Extractor,
		ledger:      ledger,
		scorer:      scorer,
		quota:       quota,
		opts:        opts,
	}
}

// Research discovers and processes sources for a vertical, returning merged
// scored candidates. Individual source and adapter failures are recorded in
// the result, never returned: a vertical where every external call fails
// still yields an empty successful result with its error list intact. An
// error return means the vertical is unknown or the run was cancelled.
func (a *Agent) Research(ctx context.Context, runID uuid.UUID, v verticals.Vertical) (*Result, error) {
	vcfg, err := verticals.Get(v)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vertical: %w", err)
	}

	result := &Result{Vertical: v}

	recentNames, err := a.ledger.RecentDiscoveredNames(ctx, string(v), recentNamesWindow, 30)
	if err != nil {
		// Awareness list is an optimization; keep going without it.
		result.Errors = append(result.Errors, fmt.Sprintf("recent names lookup failed: %v", err))
	}

	refs := a.collectSources(ctx, vcfg, result)

	var details []adapters.VideoDetail
	if len(refs) > 0 {
		details = a.fetchDetails(ctx, refs, vcfg, result)
	}
	if a.opts.Verbose {
		log.Printf("[Research] %s: %d sources selected from %d references", v, len(details), len(refs))
	}

	merged := make(map[string]*Candidate)
	for start := 0; start < len(details); start += a.opts.BatchSize {
		end := start + a.opts.BatchSize
		if end > len(details) {
			end = len(details)
		}
		for _, detail := range details[start:end] {
			a.processSource(ctx, runID, vcfg, detail, recentNames, merged, result)
		}
		if end < len(details) && a.opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				result.QuotaUsed = a.quota.Used()
				return result, ctx.Err()
			case <-time.After(a.opts.BatchDelay):
			}
		}
	}

	a.processHashtagPages(ctx, runID, vcfg, recentNames, merged, result)

	result.Candidates = finalizeCandidates(merged, a.scorer)
	result.QuotaUsed = a.quota.Used()
	return result, nil
}

// collectSources runs the query plan and returns deduplicated, unprocessed
// video references, oversampled so the view-count filter has room to cut.
func (a *Agent) collectSources(ctx context.Context, vcfg verticals.Config, result *Result) []adapters.VideoRef {
	target := a.opts.MaxSources * 3
	now := time.Now()

	var queries []adapters.SearchQuery
	for _, q := range vcfg.TrendingQueries {
		queries = append(queries, adapters.SearchQuery{
			Query:          q,
			MaxResults:     10,
			PublishedAfter: now.Add(-trendingWindow),
			Order:          adapters.OrderViewCount,
		})
	}
	for _, q := range vcfg.ReleaseQueries {
		queries = append(queries, adapters.SearchQuery{
			Query:          q,
			MaxResults:     10,
			PublishedAfter: now.Add(-releaseWindow),
			Order:          adapters.OrderRelevance,
		})
	}
	for _, ch := range vcfg.ChannelIDs {
		queries = append(queries, adapters.SearchQuery{
			ChannelID:      ch,
			MaxResults:     10,
			PublishedAfter: now.Add(-channelWindow),
			Order:          adapters.OrderDate,
		})
	}

	seen := make(map[string]bool)
	var refs []adapters.VideoRef
	for _, q := range queries {
		if len(refs) >= target {
			break
		}
		if !a.quota.Spend(CostSearch) {
			if a.opts.Verbose {
				log.Printf("[Research] %s: quota exhausted, stopping search", vcfg.Name)
			}
			break
		}

		found, err := a.videos.Search(ctx, q)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("search failed: %v", err))
			if errors.Is(err, adapters.ErrRateLimited) {
				break
			}
			continue
		}

		for _, ref := range found {
			if seen[ref.VideoID] {
				continue
			}
			seen[ref.VideoID] = true

			processed, err := a.ledger.WasSourceProcessed(ctx, string(vcfg.Name), "video", ref.VideoID, processedLookback)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("ledger check failed: %v", err))
			} else if processed {
				continue
			}
			refs = append(refs, ref)
		}
	}
	return refs
}

// fetchDetails pulls metadata, filters low-traction videos, and keeps the
// top MaxSources by view count.
func (a *Agent) fetchDetails(ctx context.Context, refs []adapters.VideoRef, vcfg verticals.Config, result *Result) []adapters.VideoDetail {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.VideoID)
	}

	batches := (len(ids) + 49) / 50
	if !a.quota.Spend(batches * CostDetailBatch) {
		result.Errors = append(result.Errors, "quota exhausted before detail fetch")
		return nil
	}

	details, err := a.videos.Details(ctx, ids)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("detail fetch failed: %v", err))
		return nil
	}

	kept := details[:0]
	for _, d := range details {
		if d.ViewCount >= vcfg.MinViewCount {
			kept = append(kept, d)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].ViewCount > kept[j].ViewCount })
	if len(kept) > a.opts.MaxSources {
		kept = kept[:a.opts.MaxSources]
	}
	return kept
}

// processSource extracts mentions from one video, preferring the transcript
// and falling back to the description, then merges them into the candidate
// map and records the source in the ledger.
func (a *Agent) processSource(ctx context.Context, runID uuid.UUID, vcfg verticals.Config, detail adapters.VideoDetail, recentNames []string, merged map[string]*Candidate, result *Result) {
	outcome := SourceOutcome{
		ExternalID:  detail.VideoID,
		SourceType:  "video",
		URL:         detail.URL(),
		Title:       detail.Title,
		Channel:     detail.ChannelTitle,
		ViewCount:   detail.ViewCount,
		PublishedAt: detail.PublishedAt,
	}

	text := ""
	if a.quota.Spend(CostTranscript) {
		transcript, err := a.transcripts.Transcript(ctx, detail.VideoID)
		switch {
		case err == nil:
			text = transcript
			outcome.TranscriptLen = len(transcript)
		case errors.Is(err, adapters.ErrUnavailable):
			// Expected for videos without captions; the description carries
			// product links and names for most gear channels.
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("transcript fetch failed for %s: %v", detail.VideoID, err))
		}
	}
	if text == "" {
		text = detail.Description
	}

	if len(text) < minUsableText {
		outcome.Status = db.SourceStatusNoText
		a.recordSource(ctx, runID, vcfg, outcome, result)
		result.Sources = append(result.Sources, outcome)
		return
	}

	if !a.quota.Spend(CostExtraction) {
		outcome.Status = db.SourceStatusFailed
		outcome.Error = "quota exhausted before extraction"
		a.recordSource(ctx, runID, vcfg, outcome, result)
		result.Sources = append(result.Sources, outcome)
		return
	}

	mentions, err := a.extractor.ExtractMentions(ctx, adapters.ExtractionRequest{
		Text:           text,
		SourceTitle:    detail.Title,
		Vertical:       vcfg.Name,
		BrandHints:     vcfg.BrandKeywords,
		ProductTypes:   vcfg.ProductTypes,
		RecentProducts: recentNames,
		MaxMentions:    a.opts.MaxCandidatesPerSource,
	})
	if err != nil {
		outcome.Status = db.SourceStatusFailed
		outcome.Error = err.Error()
		result.Errors = append(result.Errors, fmt.Sprintf("extraction failed for %s: %v", detail.VideoID, err))
		a.recordSource(ctx, runID, vcfg, outcome, result)
		result.Sources = append(result.Sources, outcome)
		return
	}

	for _, m := range mentions {
		mergeMention(merged, m, vcfg.Name, detail.VideoID)
	}

	outcome.Status = db.SourceStatusOK
	a.recordSource(ctx, runID, vcfg, outcome, result)
	result.Sources = append(result.Sources, outcome)
}

// processHashtagPages researches the vertical's hashtag pages, the lane for
// short-form platforms that offer no search API. Hashtag pages render client
// side, so reads go through the page reader's browser fallback.
func (a *Agent) processHashtagPages(ctx context.Context, runID uuid.UUID, vcfg verticals.Config, recentNames []string, merged map[string]*Candidate, result *Result) {
	if a.pages == nil {
		return
	}

	read := 0
	for _, tag := range vcfg.Hashtags {
		if read >= maxHashtagPages || ctx.Err() != nil {
			return
		}

		processed, err := a.ledger.WasSourceProcessed(ctx, string(vcfg.Name), "hashtag_page", tag, hashtagLookback)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("ledger check failed: %v", err))
		} else if processed {
			continue
		}

		if !a.quota.Spend(CostPageFetch) {
			if a.opts.Verbose {
				log.Printf("[Research] %s: quota exhausted, skipping hashtag pages", vcfg.Name)
			}
			return
		}
		read++

		outcome := SourceOutcome{
			ExternalID: tag,
			SourceType: "hashtag_page",
			URL:        "https://www.tiktok.com/tag/" + tag,
			Title:      "#" + tag,
		}

		text, err := a.pages.ReadPage(ctx, outcome.URL)
		if err != nil {
			outcome.Status = db.SourceStatusFailed
			outcome.Error = err.Error()
			result.Errors = append(result.Errors, fmt.Sprintf("hashtag page read failed for #%s: %v", tag, err))
			a.recordSource(ctx, runID, vcfg, outcome, result)
			result.Sources = append(result.Sources, outcome)
			continue
		}

		if len(text) < minUsableText {
			outcome.Status = db.SourceStatusNoText
			a.recordSource(ctx, runID, vcfg, outcome, result)
			result.Sources = append(result.Sources, outcome)
			continue
		}

		if !a.quota.Spend(CostExtraction) {
			outcome.Status = db.SourceStatusFailed
			outcome.Error = "quota exhausted before extraction"
			a.recordSource(ctx, runID, vcfg, outcome, result)
			result.Sources = append(result.Sources, outcome)
			return
		}

		mentions, err := a.extractor.ExtractMentions(ctx, adapters.ExtractionRequest{
			Text:           text,
			SourceTitle:    "Trending #" + tag + " gear",
			Vertical:       vcfg.Name,
			BrandHints:     vcfg.BrandKeywords,
			ProductTypes:   vcfg.ProductTypes,
			RecentProducts: recentNames,
			MaxMentions:    a.opts.MaxCandidatesPerSource,
		})
		if err != nil {
			outcome.Status = db.SourceStatusFailed
			outcome.Error = err.Error()
			result.Errors = append(result.Errors, fmt.Sprintf("extraction failed for #%s: %v", tag, err))
			a.recordSource(ctx, runID, vcfg, outcome, result)
			result.Sources = append(result.Sources, outcome)
			continue
		}

		for _, m := range mentions {
			mergeMention(merged, m, vcfg.Name, "tag:"+tag)
		}
		outcome.Status = db.SourceStatusOK
		a.recordSource(ctx, runID, vcfg, outcome, result)
		result.Sources = append(result.Sources, outcome)
	}
}

func (a *Agent) recordSource(ctx context.Context, runID uuid.UUID, vcfg verticals.Config, outcome SourceOutcome, result *Result) {
	if a.opts.DryRun {
		return
	}
	var publishedAt *time.Time
	if !outcome.PublishedAt.IsZero() {
		t := outcome.PublishedAt
		publishedAt = &t
	}
	rec := &db.SourceRecord{
		RunID:         runID,
		Vertical:      string(vcfg.Name),
		SourceType:    outcome.SourceType,
		ExternalID:    outcome.ExternalID,
		URL:           outcome.URL,
		Title:         outcome.Title,
		Channel:       outcome.Channel,
		ViewCount:     outcome.ViewCount,
		PublishedAt:   publishedAt,
		TranscriptLen: outcome.TranscriptLen,
		Status:        outcome.Status,
	}
	if err := a.ledger.RecordSource(ctx, rec); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("ledger write failed for %s: %v", outcome.ExternalID, err))
	}
}

// mergeMention folds one extracted mention into the candidate map keyed on
// normalized name: mention counts accumulate, sources union, and the best
// extraction confidence wins.
func mergeMention(merged map[string]*Candidate, m adapters.Mention, v verticals.Vertical, sourceID string) {
	key := NormalizeName(m.Name)
	if key == "" {
		return
	}

	c, ok := merged[key]
	if !ok {
		merged[key] = &Candidate{
			Name:           m.Name,
			NormalizedName: key,
			BrandGuess:     m.BrandGuess,
			Vertical:       v,
			MentionCount:   1,
			Extraction:     m.Confidence,
			SourceIDs:      []string{sourceID},
			VintageHint:    adapters.LooksVintage(m.Name),
		}
		return
	}

	c.MentionCount++
	if m.Confidence > c.Extraction {
		c.Extraction = m.Confidence
	}
	if c.BrandGuess == "" {
		c.BrandGuess = m.BrandGuess
	}
	if len(m.Name) > len(c.Name) {
		// Prefer the fuller display name across sources.
		c.Name = m.Name
	}
	for _, id := range c.SourceIDs {
		if id == sourceID {
			return
		}
	}
	c.SourceIDs = append(c.SourceIDs, sourceID)
}

func finalizeCandidates(merged map[string]*Candidate, scorer Scorer) []Candidate {
	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		c.Score = scorer.Score(*c)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out
}
