package gaps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/research"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

type fakeStore struct {
	library   []db.LibraryProduct
	upserted  map[string]*db.LibraryGap // keyed vertical|normalized_name
	upsertErr error
	counts    map[string]int
	newCount  int
	gaps      []db.LibraryGap
}

func (f *fakeStore) ListProductsByVertical(ctx context.Context, vertical string) ([]db.LibraryProduct, error) {
	return f.library, nil
}

// UpsertGap mirrors the store's conflict handling: a repeat sighting gains
// one occurrence and a recomputed priority instead of a new row.
func (f *fakeStore) UpsertGap(ctx context.Context, gap *db.LibraryGap) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.upserted == nil {
		f.upserted = make(map[string]*db.LibraryGap)
	}
	key := gap.Vertical + "|" + gap.NormalizedName
	if existing, ok := f.upserted[key]; ok {
		existing.OccurrenceCount++
		existing.Priority = gap.Priority * float64(existing.OccurrenceCount)
		existing.LastSeenAt = time.Now()
		*gap = *existing
		return nil
	}
	gap.ID = uuid.New()
	gap.LastSeenAt = time.Now()
	stored := *gap
	f.upserted[key] = &stored
	return nil
}

func (f *fakeStore) ListGaps(ctx context.Context, filters db.GapFilters) ([]db.LibraryGap, error) {
	var out []db.LibraryGap
	for _, g := range f.gaps {
		if filters.Vertical == "" || g.Vertical == filters.Vertical {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) CountGapsByVertical(ctx context.Context) (map[string]int, error) {
	return f.counts, nil
}

func (f *fakeStore) CountGapsSince(ctx context.Context, vertical string, since time.Time) (int, error) {
	return f.newCount, nil
}

// scoreByName returns a fixed score per candidate name, 0 for unknown names.
func scoreByName(scores map[string]float64) MatchFunc {
	return func(ctx context.Context, name, brand string, library []db.LibraryProduct) float64 {
		return scores[name]
	}
}

func candidate(name string, mentions int) research.Candidate {
	return research.Candidate{
		Name:           name,
		NormalizedName: research.NormalizeName(name),
		Vertical:       verticals.Vertical("edc"),
		MentionCount:   mentions,
	}
}

func TestAnalyzeRecordsOnlyUnmatched(t *testing.T) {
	store := &fakeStore{counts: map[string]int{"edc": 2}, newCount: 2}
	match := scoreByName(map[string]float64{
		"Benchmade Bugout":   95, // in the library
		"Mystery Slip Joint": 10,
		"CRKT Pilar IV":      30,
	})
	agent := NewAgent(store, match, false, false)

	candidates := []research.Candidate{
		candidate("Benchmade Bugout", 5),
		candidate("Mystery Slip Joint", 2),
		candidate("CRKT Pilar IV", 3),
	}

	result, err := agent.Analyze(context.Background(), uuid.New(), verticals.Vertical("edc"), candidates)
	require.NoError(t, err)

	require.Len(t, store.upserted, 2)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, 2, result.NewThisRun)
	assert.Equal(t, 2, result.TotalUnresolved)
	for _, e := range result.Entries {
		assert.NotEqual(t, "Benchmade Bugout", e.DisplayName)
	}
}

func TestAnalyzePriorityUsesGapWeight(t *testing.T) {
	store := &fakeStore{}
	match := scoreByName(nil)
	agent := NewAgent(store, match, false, false)

	candidates := []research.Candidate{candidate("Mystery Slip Joint", 4)}

	result, err := agent.Analyze(context.Background(), uuid.New(), verticals.Vertical("edc"), candidates)
	require.NoError(t, err)

	// One sighting at edc's gap weight of 1.5, regardless of mention volume.
	require.Len(t, result.Entries, 1)
	assert.InDelta(t, 1.5, result.Entries[0].Priority, 0.001)
	assert.Equal(t, 1, result.Entries[0].Occurrences)
}

func TestAnalyzeOrdersByPriority(t *testing.T) {
	store := &fakeStore{}
	agent := NewAgent(store, scoreByName(nil), false, false)
	edc := verticals.Vertical("edc")

	_, err := agent.Analyze(context.Background(), uuid.New(), edc, []research.Candidate{
		candidate("Hot New Knife", 6),
	})
	require.NoError(t, err)

	result, err := agent.Analyze(context.Background(), uuid.New(), edc, []research.Candidate{
		candidate("Low Mention Tool", 1),
		candidate("Hot New Knife", 2),
		candidate("Mid Flashlight", 3),
	})
	require.NoError(t, err)

	// The recurring gap outranks this run's new ones; ties break on name.
	require.Len(t, result.Entries, 3)
	assert.Equal(t, "Hot New Knife", result.Entries[0].DisplayName)
	assert.Equal(t, "Low Mention Tool", result.Entries[1].DisplayName)
	assert.Equal(t, "Mid Flashlight", result.Entries[2].DisplayName)
}

func TestAnalyzeRecurringGapCountsRunsNotMentions(t *testing.T) {
	store := &fakeStore{}
	agent := NewAgent(store, scoreByName(nil), false, false)
	edc := verticals.Vertical("edc")

	for i := 0; i < 2; i++ {
		_, err := agent.Analyze(context.Background(), uuid.New(), edc, []research.Candidate{
			candidate("Zeta Widget", 4),
		})
		require.NoError(t, err)
	}

	gap := store.upserted["edc|zeta widget"]
	require.NotNil(t, gap)
	assert.Equal(t, 2, gap.OccurrenceCount, "two runs, two sightings")
	assert.InDelta(t, 3.0, gap.Priority, 0.001) // 1.5 weight times two sightings
}

func TestAnalyzeDryRunSkipsWrites(t *testing.T) {
	store := &fakeStore{}
	agent := NewAgent(store, scoreByName(nil), true, false)

	candidates := []research.Candidate{candidate("Mystery Slip Joint", 2)}

	result, err := agent.Analyze(context.Background(), uuid.New(), verticals.Vertical("edc"), candidates)
	require.NoError(t, err)

	assert.Empty(t, store.upserted)
	require.Len(t, result.Entries, 1, "dry run still reports the gaps it would record")
}

func TestAnalyzeUpsertFailureIsCollected(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("connection reset")}
	agent := NewAgent(store, scoreByName(nil), false, false)

	candidates := []research.Candidate{
		candidate("Mystery Slip Joint", 2),
		candidate("Hot New Knife", 6),
	}

	result, err := agent.Analyze(context.Background(), uuid.New(), verticals.Vertical("edc"), candidates)
	require.NoError(t, err)

	assert.Empty(t, result.Entries)
	assert.Len(t, result.Errors, 2)
}

func TestBuildReport(t *testing.T) {
	store := &fakeStore{
		counts: map[string]int{"edc": 3, "golf": 1},
		gaps: []db.LibraryGap{
			{Vertical: "edc", DisplayName: "Mystery Slip Joint", Priority: 9},
			{Vertical: "edc", DisplayName: "Hot New Knife", Priority: 4.5},
			{Vertical: "golf", DisplayName: "Prototype Putter", Priority: 2},
		},
	}

	report, err := BuildReport(context.Background(), store, "", 10)
	require.NoError(t, err)

	require.Len(t, report.Verticals, 2)
	assert.Equal(t, 3, report.Verticals["edc"].Unresolved)
	assert.Len(t, report.Verticals["edc"].TopGaps, 2)
	assert.Len(t, report.Verticals["golf"].TopGaps, 1)

	single, err := BuildReport(context.Background(), store, "golf", 10)
	require.NoError(t, err)
	require.Len(t, single.Verticals, 1)
	assert.Equal(t, 1, single.Verticals["golf"].Unresolved)
}
