package adapters

import (
	"context"
	"testing"

	"github.com/jonathan/gear-discovery/internal/verticals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksVintage(t *testing.T) {
	tests := []struct {
		name     string
		product  string
		expected bool
	}{
		{"year in name", "Scotty Cameron Newport 2 2014", true},
		{"discontinued keyword", "Canon 5D Mark II (discontinued)", true},
		{"vintage keyword", "vintage Seiko diver", true},
		{"current product", "Titleist TSR3 Driver", false},
		{"recent year", "Sony A7 IV 2021 firmware", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LooksVintage(tt.product))
		})
	}
}

func TestResolveLinks_SpecialtyRetailerFirst(t *testing.T) {
	resolver := NewRetailLinkResolver(8)

	links, err := resolver.ResolveLinks(context.Background(), "TSR3 Driver", "Titleist", verticals.Golf, false)
	require.NoError(t, err)
	require.NotEmpty(t, links)

	assert.Equal(t, "PGA TOUR Superstore", links[0].SourceLabel)
	assert.Contains(t, links[0].URL, "Titleist+TSR3+Driver")
}

func TestResolveLinks_BrandNotDuplicatedInQuery(t *testing.T) {
	resolver := NewRetailLinkResolver(8)

	links, err := resolver.ResolveLinks(context.Background(), "Titleist TSR3 Driver", "Titleist", verticals.Golf, false)
	require.NoError(t, err)
	assert.NotContains(t, links[0].URL, "Titleist+Titleist")
}

func TestResolveLinks_VintagePromotesUsedMarketplaces(t *testing.T) {
	resolver := NewRetailLinkResolver(8)

	links, err := resolver.ResolveLinks(context.Background(), "Newport 2", "Scotty Cameron", verticals.Golf, true)
	require.NoError(t, err)
	require.NotEmpty(t, links)

	// 2nd Swing and eBay carry used inventory and should lead the chain.
	usedFirst := map[string]bool{"2nd Swing": true, "eBay": true}
	assert.True(t, usedFirst[links[0].SourceLabel], "got %s", links[0].SourceLabel)
	assert.True(t, usedFirst[links[1].SourceLabel], "got %s", links[1].SourceLabel)
}

func TestResolveLinks_RespectsTopN(t *testing.T) {
	resolver := NewRetailLinkResolver(2)

	links, err := resolver.ResolveLinks(context.Background(), "A7 IV", "Sony", verticals.Photography, false)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestResolveLinks_EmptyNameRejected(t *testing.T) {
	resolver := NewRetailLinkResolver(8)

	_, err := resolver.ResolveLinks(context.Background(), "  ", "Sony", verticals.Tech, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestResolveLinks_UnknownVerticalStillGetsCommonChain(t *testing.T) {
	resolver := NewRetailLinkResolver(8)

	links, err := resolver.ResolveLinks(context.Background(), "Widget", "", verticals.Vertical("unknown"), false)
	require.NoError(t, err)
	require.NotEmpty(t, links)
	assert.Equal(t, "Amazon", links[0].SourceLabel)
}
