package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/curation"
	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/research"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

type fakeRunStore struct {
	mu        sync.Mutex
	createErr error
	runID     uuid.UUID
	phases    []string
	completed string
	report    any
	failed    string
}

func (f *fakeRunStore) CreateRun(ctx context.Context, names []string, dryRun bool, cfg any) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.runID = uuid.New()
	return f.runID, nil
}

func (f *fakeRunStore) SetRunPhase(ctx context.Context, runID uuid.UUID, phase string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases = append(f.phases, phase)
	return nil
}

func (f *fakeRunStore) CompleteRun(ctx context.Context, runID uuid.UUID, status string, report any) error {
	f.completed = status
	f.report = report
	return nil
}

func (f *fakeRunStore) FailRun(ctx context.Context, runID uuid.UUID, errText string) error {
	f.failed = errText
	return nil
}

type fakeResearcher struct {
	mu      sync.Mutex
	results map[verticals.Vertical]*research.Result
	errs    map[verticals.Vertical]error
	panics  map[verticals.Vertical]bool
	calls   []verticals.Vertical
}

func (f *fakeResearcher) Research(ctx context.Context, runID uuid.UUID, v verticals.Vertical) (*research.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, v)
	f.mu.Unlock()
	if f.panics[v] {
		panic("adapter blew up")
	}
	if err := f.errs[v]; err != nil {
		return nil, err
	}
	if r := f.results[v]; r != nil {
		return r, nil
	}
	return &research.Result{Vertical: v}, nil
}

type fakeCurator struct {
	mu     sync.Mutex
	calls  []verticals.Vertical
	result *curation.Result
	err    error
}

func (f *fakeCurator) Curate(ctx context.Context, runID uuid.UUID, v verticals.Vertical, candidates []research.Candidate, sourceCount int) (*curation.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, v)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &curation.Result{Vertical: v, Published: true}, nil
}

type fakeGapAnalyzer struct {
	mu    sync.Mutex
	calls []verticals.Vertical
	err   error
}

func (f *fakeGapAnalyzer) Analyze(ctx context.Context, runID uuid.UUID, v verticals.Vertical, candidates []research.Candidate) (*gaps.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, v)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &gaps.Result{Vertical: v, Entries: []gaps.Entry{{DisplayName: "Something Missing"}}}, nil
}

func testConfig(names ...string) config.RunConfig {
	cfg := config.DefaultRunConfig()
	cfg.Verticals = names
	return cfg
}

func newTestOrchestrator(store *fakeRunStore, r *fakeResearcher, c *fakeCurator, g *fakeGapAnalyzer, cfg config.RunConfig) *Orchestrator {
	return New(Deps{
		Store:    store,
		Research: r,
		Curation: c,
		Gaps:     g,
		Quota:    research.NewQuotaMeter(cfg.QuotaBudgetUnits),
	}, cfg)
}

func TestExecuteHappyPath(t *testing.T) {
	store := &fakeRunStore{}
	researcher := &fakeResearcher{}
	curator := &fakeCurator{}
	analyzer := &fakeGapAnalyzer{}
	o := newTestOrchestrator(store, researcher, curator, analyzer, testConfig("golf", "tech"))

	report, err := o.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "completed", store.completed)
	assert.ElementsMatch(t, []verticals.Vertical{"golf", "tech"}, researcher.calls)
	assert.ElementsMatch(t, []verticals.Vertical{"golf", "tech"}, curator.calls)
	assert.ElementsMatch(t, []verticals.Vertical{"golf", "tech"}, analyzer.calls)

	require.Len(t, report.Verticals, 2)
	assert.Equal(t, 2, report.Totals.BagsPublished)
	assert.Equal(t, 2, report.Totals.GapsRecorded)
	assert.Zero(t, report.Totals.VerticalErrors)

	// Phases recorded in order.
	assert.Equal(t, []string{"research", "curation", "gap_analysis", "finalizing"}, store.phases)
}

func TestExecuteInvalidConfigFailsBeforeRunCreation(t *testing.T) {
	store := &fakeRunStore{}
	o := newTestOrchestrator(store, &fakeResearcher{}, &fakeCurator{}, &fakeGapAnalyzer{}, testConfig("not-a-vertical"))

	_, err := o.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, uuid.Nil, store.runID, "no run row for a config rejected up front")
}

func TestExecuteCreateRunErrorPropagates(t *testing.T) {
	store := &fakeRunStore{createErr: errors.New("connection refused")}
	o := newTestOrchestrator(store, &fakeResearcher{}, &fakeCurator{}, &fakeGapAnalyzer{}, testConfig("golf"))

	_, err := o.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create run")
}

func TestExecuteResearchFailureIsolatedToVertical(t *testing.T) {
	store := &fakeRunStore{}
	researcher := &fakeResearcher{errs: map[verticals.Vertical]error{
		"golf": errors.New("no sources found"),
	}}
	curator := &fakeCurator{}
	o := newTestOrchestrator(store, researcher, curator, &fakeGapAnalyzer{}, testConfig("golf", "tech"))

	report, err := o.Execute(context.Background())
	require.NoError(t, err, "one failed vertical must not fail the run")

	assert.Equal(t, "completed", store.completed)
	assert.Equal(t, []verticals.Vertical{"tech"}, curator.calls, "curation skips the failed vertical")
	assert.Equal(t, 1, report.Totals.VerticalErrors)

	golf := report.vertical("golf")
	assert.Contains(t, golf.Error, "no sources found")
	assert.Nil(t, golf.Curation)
}

func TestExecuteResearchPanicContained(t *testing.T) {
	store := &fakeRunStore{}
	researcher := &fakeResearcher{panics: map[verticals.Vertical]bool{"golf": true}}
	o := newTestOrchestrator(store, researcher, &fakeCurator{}, &fakeGapAnalyzer{}, testConfig("golf", "tech"))

	report, err := o.Execute(context.Background())
	require.NoError(t, err)

	golf := report.vertical("golf")
	assert.Contains(t, golf.Error, "panicked")
	tech := report.vertical("tech")
	assert.Empty(t, tech.Error)
}

func TestExecuteCurationFailureKeepsGapAnalysis(t *testing.T) {
	store := &fakeRunStore{}
	curator := &fakeCurator{err: errors.New("publish collision")}
	analyzer := &fakeGapAnalyzer{}
	o := newTestOrchestrator(store, &fakeResearcher{}, curator, analyzer, testConfig("golf"))

	report, err := o.Execute(context.Background())
	require.NoError(t, err)

	golf := report.vertical("golf")
	assert.Contains(t, golf.Error, "curation")
	assert.NotNil(t, golf.Gaps, "gap analysis still runs after a curation failure")
	assert.Equal(t, []verticals.Vertical{"golf"}, analyzer.calls)
}

func TestExecuteDryRunTouchesNoStore(t *testing.T) {
	store := &fakeRunStore{}
	cfg := testConfig("golf")
	cfg.DryRun = true
	o := newTestOrchestrator(store, &fakeResearcher{}, &fakeCurator{}, &fakeGapAnalyzer{}, cfg)

	report, err := o.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, uuid.Nil, store.runID)
	assert.Empty(t, store.phases)
	assert.Empty(t, store.completed)
}

func TestExecuteCancelledContextMarksRunFailed(t *testing.T) {
	store := &fakeRunStore{}
	o := newTestOrchestrator(store, &fakeResearcher{}, &fakeCurator{}, &fakeGapAnalyzer{}, testConfig("golf"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Execute(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run interrupted")
	assert.NotEmpty(t, store.failed)
	assert.Empty(t, store.completed)
}

func TestExecuteConcurrencyBound(t *testing.T) {
	store := &fakeRunStore{}
	cfg := testConfig() // all verticals
	cfg.MaxConcurrentVerticals = 1
	researcher := &fakeResearcher{}
	o := newTestOrchestrator(store, researcher, &fakeCurator{}, &fakeGapAnalyzer{}, cfg)

	report, err := o.Execute(context.Background())
	require.NoError(t, err)

	assert.Len(t, researcher.calls, len(verticals.All()))
	assert.Len(t, report.Verticals, len(verticals.All()))
}

func TestSummarizeResearchTopCandidates(t *testing.T) {
	r := &research.Result{QuotaUsed: 42}
	for i := 0; i < 8; i++ {
		r.Candidates = append(r.Candidates, research.Candidate{Name: string(rune('a' + i))})
	}

	s := summarizeResearch(r)
	assert.Len(t, s.TopCandidates, topCandidateCount)
	assert.Equal(t, 8, s.CandidatesFound)
	assert.Equal(t, 42, s.QuotaUsed)
}
