package curation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/gear-discovery/internal/db"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"strips punctuation", "Titleist TSR3 Driver!", []string{"titleist", "tsr3", "driver"}},
		{"drops stop words", "the best new driver kit", []string{"driver"}},
		{"keeps model numbers", "Shure SM7B 2024", []string{"shure", "sm7b", "2024"}},
		{"drops single chars", "a b driver", []string{"driver"}},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.input))
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("driver", "driver"))
	assert.Equal(t, 1, levenshteinDistance("driver", "drivers"))
	assert.Equal(t, 1, levenshteinDistance("taylormade", "taylormde"))
	assert.Equal(t, 3, levenshteinDistance("cat", ""))
	assert.Equal(t, 3, levenshteinDistance("", "cat"))
}

func TestFuzzyTokenMatch(t *testing.T) {
	assert.True(t, fuzzyTokenMatch("titleist", "titleist", 1))
	assert.True(t, fuzzyTokenMatch("taylormade", "taylormde", 1))
	// Short tokens must match exactly.
	assert.False(t, fuzzyTokenMatch("tsr3", "tsr2", 1))
	assert.False(t, fuzzyTokenMatch("mini", "mina", 1))
	// Too far apart.
	assert.False(t, fuzzyTokenMatch("titleist", "callaway", 1))
}

func library(products ...db.LibraryProduct) []db.LibraryProduct {
	for i := range products {
		products[i].ID = uuid.New()
	}
	return products
}

func TestBestMatchExact(t *testing.T) {
	lib := library(
		db.LibraryProduct{Name: "TSR3 Driver", Brand: "Titleist", Vertical: "golf"},
		db.LibraryProduct{Name: "Paradym Ai Smoke", Brand: "Callaway", Vertical: "golf"},
	)

	m := NewMatcher(0)
	result := m.BestMatch(context.Background(), "Titleist TSR3 Driver", "Titleist", lib)

	require.True(t, result.Matched)
	require.NotNil(t, result.Product)
	assert.Equal(t, "TSR3 Driver", result.Product.Name)
	assert.GreaterOrEqual(t, result.Score, 90.0)
	assert.LessOrEqual(t, result.Score, 100.0)
}

func TestBestMatchBrandBonus(t *testing.T) {
	lib := library(db.LibraryProduct{Name: "Stealth 2 Driver", Brand: "TaylorMade", Vertical: "golf"})
	m := NewMatcher(0)

	with := m.BestMatch(context.Background(), "Stealth 2", "TaylorMade", lib)
	without := m.BestMatch(context.Background(), "Stealth 2", "", lib)

	assert.Greater(t, with.Score, without.Score)
}

func TestBestMatchBelowThreshold(t *testing.T) {
	lib := library(db.LibraryProduct{Name: "TSR3 Driver", Brand: "Titleist", Vertical: "golf"})
	m := NewMatcher(0)

	result := m.BestMatch(context.Background(), "Garmin Approach S70 Watch", "Garmin", lib)

	assert.False(t, result.Matched)
	assert.Nil(t, result.Product, "non-match must not expose a wrong product")
}

func TestBestMatchEmptyLibrary(t *testing.T) {
	m := NewMatcher(0)
	result := m.BestMatch(context.Background(), "Anything", "", nil)
	assert.False(t, result.Matched)
	assert.Nil(t, result.Product)
}

func TestBestMatchFuzzyTypo(t *testing.T) {
	lib := library(db.LibraryProduct{Name: "Benchmade Bugout", Brand: "Benchmade", Vertical: "edc"})
	m := NewMatcher(0)

	result := m.BestMatch(context.Background(), "Benchmad Bugout", "", lib)

	assert.True(t, result.Matched, "one-edit token typo should still match, score %.1f", result.Score)
}

func TestBagCode(t *testing.T) {
	assert.Equal(t, "what-s-in-the-bag-this-week-week-36-2026", BagCode("What's In The Bag This Week - Week 36, 2026"))
	assert.Equal(t, "trending-tech", BagCode("  Trending Tech!  "))
}
