package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/gear-discovery/internal/curation"
	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/research"
)

// RunReport is the auditable record of one discovery run, stored with the
// run row and returned by the API.
type RunReport struct {
	RunID       uuid.UUID         `json:"run_id"`
	DryRun      bool              `json:"dry_run,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	DurationSec float64           `json:"duration_seconds"`
	QuotaUsed   int               `json:"quota_used"`
	Verticals   []*VerticalReport `json:"verticals"`
	Totals      RunTotals         `json:"totals"`
}

// RunTotals aggregates headline numbers across verticals.
type RunTotals struct {
	SourcesProcessed int `json:"sources_processed"`
	Candidates       int `json:"candidates"`
	BagsPublished    int `json:"bags_published"`
	GapsRecorded     int `json:"gaps_recorded"`
	VerticalErrors   int `json:"vertical_errors"`
}

// VerticalReport is one vertical's slice of the run.
type VerticalReport struct {
	Vertical string           `json:"vertical"`
	Research *ResearchSummary `json:"research,omitempty"`
	Curation *curation.Result `json:"curation,omitempty"`
	Gaps     *gaps.Result     `json:"gaps,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ResearchSummary condenses a research result for the report; full source
// outcomes live in the ledger, not here.
type ResearchSummary struct {
	SourcesFound    int      `json:"sources_found"`
	SourcesUsable   int      `json:"sources_usable"`
	CandidatesFound int      `json:"candidates_found"`
	QuotaUsed       int      `json:"quota_used"`
	TopCandidates   []string `json:"top_candidates,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// topCandidateCount bounds how many candidate names the summary lists.
const topCandidateCount = 5

func summarizeResearch(r *research.Result) *ResearchSummary {
	s := &ResearchSummary{
		SourcesFound:    len(r.Sources),
		SourcesUsable:   r.OKSourceCount(),
		CandidatesFound: len(r.Candidates),
		QuotaUsed:       r.QuotaUsed,
		Errors:          r.Errors,
	}
	for i, c := range r.Candidates {
		if i >= topCandidateCount {
			break
		}
		s.TopCandidates = append(s.TopCandidates, c.Name)
	}
	return s
}

// vertical returns the report entry for a vertical, creating it when the
// research phase never produced one.
func (r *RunReport) vertical(name string) *VerticalReport {
	for _, vr := range r.Verticals {
		if vr.Vertical == name {
			return vr
		}
	}
	vr := &VerticalReport{Vertical: name}
	r.Verticals = append(r.Verticals, vr)
	return vr
}

// finalize computes duration and totals from the per-vertical reports.
func (r *RunReport) finalize() {
	r.DurationSec = r.CompletedAt.Sub(r.StartedAt).Seconds()

	var totals RunTotals
	for _, vr := range r.Verticals {
		if vr.Research != nil {
			totals.SourcesProcessed += vr.Research.SourcesFound
			totals.Candidates += vr.Research.CandidatesFound
		}
		if vr.Curation != nil && vr.Curation.Published {
			totals.BagsPublished++
		}
		if vr.Gaps != nil {
			totals.GapsRecorded += len(vr.Gaps.Entries)
		}
		if vr.Error != "" {
			totals.VerticalErrors++
		}
	}
	r.Totals = totals
}
