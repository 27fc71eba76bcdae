// Package orchestrator drives a discovery run through its phases: research
// across verticals, curation, gap analysis, and finalization with an
// auditable run report.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/curation"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/research"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

// RunStore is the run lifecycle surface of the database.
type RunStore interface {
	CreateRun(ctx context.Context, verticals []string, dryRun bool, config any) (uuid.UUID, error)
	SetRunPhase(ctx context.Context, runID uuid.UUID, phase string) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, report any) error
	FailRun(ctx context.Context, runID uuid.UUID, errText string) error
}

// Researcher runs the research phase for one vertical.
type Researcher interface {
	Research(ctx context.Context, runID uuid.UUID, v verticals.Vertical) (*research.Result, error)
}

// Curator runs the curation phase for one vertical.
type Curator interface {
	Curate(ctx context.Context, runID uuid.UUID, v verticals.Vertical, candidates []research.Candidate, sourceCount int) (*curation.Result, error)
}

// GapAnalyzer runs gap analysis for one vertical.
type GapAnalyzer interface {
	Analyze(ctx context.Context, runID uuid.UUID, v verticals.Vertical, candidates []research.Candidate) (*gaps.Result, error)
}

// Deps bundles everything an orchestrator needs. Interfaces so tests can
// fake each phase.
type Deps struct {
	Store    RunStore
	Research Researcher
	Curation Curator
	Gaps     GapAnalyzer
	Quota    *research.QuotaMeter
}

// Orchestrator executes discovery runs.
type Orchestrator struct {
	deps Deps
	cfg  config.RunConfig
}

// New creates an orchestrator for the given run configuration. The config
// must already be merged with defaults.
func New(deps Deps, cfg config.RunConfig) *Orchestrator {
	return &Orchestrator{deps: deps, cfg: cfg}
}

// Execute runs the full pipeline. Per-vertical failures land in the report
// and the run still completes; an error return means a precondition failed
// (bad config, unreachable store) and no pipeline work happened.
func (o *Orchestrator) Execute(ctx context.Context) (*RunReport, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	targets := o.cfg.ResolvedVerticals()
	names := make([]string, len(targets))
	for i, v := range targets {
		names[i] = string(v)
	}

	var runID uuid.UUID
	if o.cfg.DryRun {
		// Dry runs leave no trace in the store; the ID only threads results
		// together in the report.
		runID = uuid.New()
	} else {
		var err error
		runID, err = o.deps.Store.CreateRun(ctx, names, o.cfg.DryRun, o.cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
	}

	report := &RunReport{
		RunID:     runID,
		DryRun:    o.cfg.DryRun,
		StartedAt: time.Now().UTC(),
	}

	results := o.researchPhase(ctx, runID, targets, report)
	o.curationPhase(ctx, runID, targets, results, report)
	o.gapPhase(ctx, runID, targets, results, report)

	if err := ctx.Err(); err != nil {
		// Interrupted mid-run. Mark the run failed with whatever the report
		// holds so far; the store write needs a live context.
		report.CompletedAt = time.Now().UTC()
		report.finalize()
		if !o.cfg.DryRun {
			if ferr := o.deps.Store.FailRun(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
				log.Printf("[Run] failed to mark run %s failed: %v", runID, ferr)
			}
		}
		return report, fmt.Errorf("run interrupted: %w", err)
	}

	o.setPhase(ctx, runID, db.PhaseFinalizing)
	report.CompletedAt = time.Now().UTC()
	if o.deps.Quota != nil {
		report.QuotaUsed = o.deps.Quota.Used()
	}
	report.finalize()

	if o.cfg.DryRun {
		return report, nil
	}
	if err := o.deps.Store.CompleteRun(ctx, runID, db.RunStatusCompleted, report); err != nil {
		return report, fmt.Errorf("failed to store run report: %w", err)
	}
	return report, nil
}

// researchPhase runs research concurrently across verticals, bounded by
// MaxConcurrentVerticals. A panicking vertical is contained and reported;
// the others keep going.
func (o *Orchestrator) researchPhase(ctx context.Context, runID uuid.UUID, targets []verticals.Vertical, report *RunReport) map[verticals.Vertical]*research.Result {
	o.setPhase(ctx, runID, db.PhaseResearch)

	results := make(map[verticals.Vertical]*research.Result, len(targets))
	verticalReports := make(map[verticals.Vertical]*VerticalReport, len(targets))
	for _, v := range targets {
		verticalReports[v] = &VerticalReport{Vertical: string(v)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentVerticals)

	var mu sync.Mutex
	for _, v := range targets {
		v := v
		g.Go(func() error {
			result, err := o.researchOne(gctx, runID, v)
			mu.Lock()
			defer mu.Unlock()
			vr := verticalReports[v]
			if err != nil {
				vr.Error = err.Error()
				return nil // one vertical failing must not cancel the others
			}
			results[v] = result
			vr.Research = summarizeResearch(result)
			return nil
		})
	}
	_ = g.Wait()

	for _, v := range targets {
		report.Verticals = append(report.Verticals, verticalReports[v])
	}
	sort.Slice(report.Verticals, func(i, j int) bool {
		return report.Verticals[i].Vertical < report.Verticals[j].Vertical
	})
	return results
}

// researchOne isolates one vertical's research, converting panics into
// errors so a misbehaving adapter cannot take down the run.
func (o *Orchestrator) researchOne(ctx context.Context, runID uuid.UUID, v verticals.Vertical) (result *research.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("research panicked for %s: %v", v, r)
		}
	}()
	return o.deps.Research.Research(ctx, runID, v)
}

// curationPhase assembles bags sequentially; publishing is a database
// transaction per vertical and gains nothing from concurrency.
func (o *Orchestrator) curationPhase(ctx context.Context, runID uuid.UUID, targets []verticals.Vertical, results map[verticals.Vertical]*research.Result, report *RunReport) {
	o.setPhase(ctx, runID, db.PhaseCuration)

	for _, v := range targets {
		result := results[v]
		if result == nil {
			continue
		}
		vr := report.vertical(string(v))

		curated, err := o.curateOne(ctx, runID, v, result)
		if err != nil {
			vr.Error = appendError(vr.Error, fmt.Sprintf("curation: %v", err))
			continue
		}
		vr.Curation = curated
	}
}

func (o *Orchestrator) curateOne(ctx context.Context, runID uuid.UUID, v verticals.Vertical, result *research.Result) (curated *curation.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			curated = nil
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	return o.deps.Curation.Curate(ctx, runID, v, result.Candidates, result.OKSourceCount())
}

func (o *Orchestrator) gapPhase(ctx context.Context, runID uuid.UUID, targets []verticals.Vertical, results map[verticals.Vertical]*research.Result, report *RunReport) {
	o.setPhase(ctx, runID, db.PhaseGapAnalysis)

	for _, v := range targets {
		result := results[v]
		if result == nil {
			continue
		}
		vr := report.vertical(string(v))

		analyzed, err := o.analyzeOne(ctx, runID, v, result)
		if err != nil {
			vr.Error = appendError(vr.Error, fmt.Sprintf("gap analysis: %v", err))
			continue
		}
		vr.Gaps = analyzed
	}
}

func (o *Orchestrator) analyzeOne(ctx context.Context, runID uuid.UUID, v verticals.Vertical, result *research.Result) (analyzed *gaps.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			analyzed = nil
			err = fmt.Errorf("panicked: %v", r)
		}
	}()
	return o.deps.Gaps.Analyze(ctx, runID, v, result.Candidates)
}

// setPhase records phase transitions, tolerating store failures: losing the
// progress marker is not worth failing the run.
func (o *Orchestrator) setPhase(ctx context.Context, runID uuid.UUID, phase string) {
	if o.cfg.DryRun {
		return
	}
	if err := o.deps.Store.SetRunPhase(ctx, runID, phase); err != nil {
		log.Printf("failed to record phase %s: %v", phase, err)
	}
}

func appendError(existing, added string) string {
	if existing == "" {
		return added
	}
	return existing + "; " + added
}
