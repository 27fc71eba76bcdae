package curation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/gear-discovery/internal/adapters"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/research"
	"github.com/jonathan/gear-discovery/internal/verticals"
)

type fakeStore struct {
	library    []db.LibraryProduct
	listErr    error
	publishErr error

	publishedBag   *db.CuratedBag
	publishedItems []db.BagItem
	accountCalls   int
}

func (f *fakeStore) ListProductsByVertical(ctx context.Context, vertical string) ([]db.LibraryProduct, error) {
	return f.library, f.listErr
}

func (f *fakeStore) EnsureSystemAccount(ctx context.Context) (*db.Account, error) {
	f.accountCalls++
	return &db.Account{ID: uuid.New(), Handle: db.SystemAccountHandle}, nil
}

func (f *fakeStore) PublishBag(ctx context.Context, bag *db.CuratedBag, items []db.BagItem) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	bag.ID = uuid.New()
	f.publishedBag = bag
	f.publishedItems = items
	return nil
}

type fakeLinks struct {
	links []adapters.CandidateLink
	err   error
	calls int
}

func (f *fakeLinks) ResolveLinks(ctx context.Context, name, brand string, v verticals.Vertical, vintageHint bool) ([]adapters.CandidateLink, error) {
	f.calls++
	return f.links, f.err
}

func candidate(name, brand string, mentions, score int) research.Candidate {
	return research.Candidate{
		Name:           name,
		NormalizedName: research.NormalizeName(name),
		BrandGuess:     brand,
		Vertical:       verticals.Vertical("golf"),
		MentionCount:   mentions,
		Score:          score,
		SourceIDs:      []string{"src-1"},
	}
}

func TestCuratePublishesBag(t *testing.T) {
	store := &fakeStore{library: library(
		db.LibraryProduct{Name: "TSR3 Driver", Brand: "Titleist", Vertical: "golf", ImageURL: "https://cdn.example.com/tsr3.jpg"},
	)}
	links := &fakeLinks{links: []adapters.CandidateLink{
		{URL: "https://www.pgatoursuperstore.com/search?q=x", SourceLabel: "PGA TOUR Superstore", Priority: 1},
		{URL: "https://www.amazon.com/s?k=x", SourceLabel: "Amazon", Affiliatable: true, Priority: 2},
	}}
	agent := NewAgent(store, NewMatcher(0), nil, links, DefaultOptions())

	candidates := []research.Candidate{
		candidate("Garmin Approach S70", "Garmin", 2, 75),
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
	}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 7)
	require.NoError(t, err)

	assert.True(t, result.Published)
	require.NotNil(t, store.publishedBag)
	assert.Equal(t, "golf", store.publishedBag.Vertical)
	assert.NotEmpty(t, store.publishedBag.Code)
	assert.NotEqual(t, uuid.Nil, store.publishedBag.AccountID)
	assert.True(t, store.publishedBag.Published)

	require.Len(t, store.publishedItems, 3)
	// Most-mentioned first.
	assert.Equal(t, "Titleist TSR3 Driver", store.publishedItems[0].Name)
	assert.Equal(t, "Odyssey Ai-One Putter", store.publishedItems[1].Name)
	assert.Equal(t, "Garmin Approach S70", store.publishedItems[2].Name)
	assert.Equal(t, 1, store.publishedItems[0].Position)
	assert.Equal(t, 3, store.publishedItems[2].Position)

	// Matched item carries the library product ID.
	assert.NotNil(t, store.publishedItems[0].ProductID)
	assert.Nil(t, store.publishedItems[2].ProductID)
	assert.Equal(t, 1, result.MatchedCount)

	// Affiliatable link wins even at a worse priority.
	assert.Equal(t, "https://www.amazon.com/s?k=x", store.publishedItems[0].PrimaryURL)
}

func TestCurateHoldsBagBelowMinItemCount(t *testing.T) {
	store := &fakeStore{}
	agent := NewAgent(store, NewMatcher(0), nil, nil, DefaultOptions())

	candidates := []research.Candidate{
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
	}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.NoError(t, err)

	// Held for review: assembled for the report, never written.
	assert.False(t, result.Published)
	assert.Contains(t, result.SkipReason, "need 3")
	require.NotNil(t, result.Bag)
	assert.Len(t, result.Items, 2)
	assert.Nil(t, store.publishedBag)
	assert.Zero(t, store.accountCalls)
}

func TestCurateNoQualifyingItems(t *testing.T) {
	store := &fakeStore{}
	agent := NewAgent(store, NewMatcher(0), nil, nil, DefaultOptions())

	candidates := []research.Candidate{candidate("Mystery Shaft", "", 1, 40)}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.NoError(t, err)

	assert.False(t, result.Published)
	assert.Equal(t, "no qualifying items", result.SkipReason)
	assert.Nil(t, result.Bag)
	assert.Nil(t, store.publishedBag)
}

func TestCurateFiltersByConfidence(t *testing.T) {
	store := &fakeStore{}
	agent := NewAgent(store, NewMatcher(0), nil, nil, DefaultOptions())

	candidates := []research.Candidate{
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Mystery Shaft", "", 1, 40),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
		candidate("Garmin Approach S70", "Garmin", 2, 75),
	}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	for _, item := range result.Items {
		assert.NotEqual(t, "Mystery Shaft", item.Name)
	}
}

func TestCurateDryRunWritesNothing(t *testing.T) {
	store := &fakeStore{}
	opts := DefaultOptions()
	opts.DryRun = true
	agent := NewAgent(store, NewMatcher(0), nil, nil, opts)

	candidates := []research.Candidate{
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
		candidate("Garmin Approach S70", "Garmin", 2, 75),
	}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.NoError(t, err)

	assert.False(t, result.Published)
	assert.Equal(t, "dry run", result.SkipReason)
	require.NotNil(t, result.Bag, "dry run still assembles the bag for the report")
	assert.Len(t, result.Items, 3)
	assert.Nil(t, store.publishedBag)
	assert.Zero(t, store.accountCalls)
}

func TestCurateAutoPublishOffHoldsBag(t *testing.T) {
	store := &fakeStore{}
	opts := DefaultOptions()
	opts.AutoPublish = false
	agent := NewAgent(store, NewMatcher(0), nil, nil, opts)

	candidates := []research.Candidate{
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
		candidate("Garmin Approach S70", "Garmin", 2, 75),
	}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.NoError(t, err)

	assert.False(t, result.Published)
	assert.Contains(t, result.SkipReason, "auto-publish")
	require.NotNil(t, result.Bag)
	assert.Len(t, result.Items, 3)
	assert.Nil(t, store.publishedBag, "a held bag never reaches the store")
	assert.Zero(t, store.accountCalls)
}

func TestCurateLinkFailureDegradesItem(t *testing.T) {
	store := &fakeStore{}
	links := &fakeLinks{err: errors.New("resolver down")}
	agent := NewAgent(store, NewMatcher(0), nil, links, DefaultOptions())

	candidates := []research.Candidate{
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
		candidate("Garmin Approach S70", "Garmin", 2, 75),
	}

	result, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.NoError(t, err)

	assert.True(t, result.Published)
	require.Len(t, store.publishedItems, 3)
	assert.Empty(t, store.publishedItems[0].PrimaryURL)
	assert.Len(t, result.Errors, 3)
}

func TestCuratePublishErrorPropagates(t *testing.T) {
	store := &fakeStore{publishErr: errors.New("duplicate key value violates unique constraint")}
	agent := NewAgent(store, NewMatcher(0), nil, nil, DefaultOptions())

	candidates := []research.Candidate{
		candidate("Titleist TSR3 Driver", "Titleist", 5, 90),
		candidate("Odyssey Ai-One Putter", "Odyssey", 3, 80),
		candidate("Garmin Approach S70", "Garmin", 2, 75),
	}

	_, err := agent.Curate(context.Background(), uuid.New(), verticals.Vertical("golf"), candidates, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish bag")
}

func TestPrimaryLink(t *testing.T) {
	assert.Empty(t, primaryLink(nil))
	assert.Equal(t, "https://a.example.com", primaryLink([]adapters.CandidateLink{
		{URL: "https://a.example.com", Priority: 1},
	}))
	assert.Equal(t, "https://b.example.com", primaryLink([]adapters.CandidateLink{
		{URL: "https://a.example.com", Priority: 1},
		{URL: "https://b.example.com", Priority: 3, Affiliatable: true},
	}))
}
