package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/gear-discovery/internal/verticals"
)

// retailer describes one storefront in the resolution chain.
type retailer struct {
	label        string
	searchURL    string // format string taking one query-escaped argument
	affiliatable bool
	priority     int  // lower is better
	usedMarket   bool // carries discontinued/used inventory
}

// Retailers common to every vertical.
var commonRetailers = []retailer{
	{label: "Amazon", searchURL: "https://www.amazon.com/s?k=%s", affiliatable: true, priority: 2},
	{label: "eBay", searchURL: "https://www.ebay.com/sch/i.html?_nkw=%s", affiliatable: true, priority: 6, usedMarket: true},
}

// Specialty retailers per vertical, tried before the common chain.
var verticalRetailers = map[verticals.Vertical][]retailer{
	verticals.Golf: {
		{label: "PGA TOUR Superstore", searchURL: "https://www.pgatoursuperstore.com/search?q=%s", affiliatable: false, priority: 1},
		{label: "2nd Swing", searchURL: "https://www.2ndswing.com/search/?query=%s", affiliatable: true, priority: 3, usedMarket: true},
		{label: "Golf Galaxy", searchURL: "https://www.golfgalaxy.com/search?searchTerm=%s", affiliatable: false, priority: 4},
	},
	verticals.Tech: {
		{label: "Best Buy", searchURL: "https://www.bestbuy.com/site/searchpage.jsp?st=%s", affiliatable: true, priority: 1},
		{label: "B&H", searchURL: "https://www.bhphotovideo.com/c/search?q=%s", affiliatable: true, priority: 3},
	},
	verticals.Photography: {
		{label: "B&H", searchURL: "https://www.bhphotovideo.com/c/search?q=%s", affiliatable: true, priority: 1},
		{label: "Adorama", searchURL: "https://www.adorama.com/l/?searchinfo=%s", affiliatable: true, priority: 3},
		{label: "KEH", searchURL: "https://www.keh.com/shop/?q=%s", affiliatable: true, priority: 4, usedMarket: true},
	},
	verticals.EDC: {
		{label: "Blade HQ", searchURL: "https://www.bladehq.com/?search=%s", affiliatable: true, priority: 1},
		{label: "KnifeCenter", searchURL: "https://www.knifecenter.com/search?q=%s", affiliatable: true, priority: 3},
	},
	verticals.Fitness: {
		{label: "Rogue Fitness", searchURL: "https://www.roguefitness.com/search?q=%s", affiliatable: false, priority: 1},
		{label: "REP Fitness", searchURL: "https://repfitness.com/search?q=%s", affiliatable: false, priority: 3},
	},
}

var yearPattern = regexp.MustCompile(`\b(19[89]\d|20[01]\d)\b`)

var vintageWords = []string{"discontinued", "vintage", "classic", "retro", "legacy", "original"}

// LooksVintage reports whether a product name suggests a discontinued or
// older-generation product. Years 2020+ are treated as current.
func LooksVintage(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range vintageWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return yearPattern.MatchString(name)
}

// RetailLinkResolver implements LinkResolver with a deterministic retailer
// chain. No network calls: links are search URLs on stores known to stock
// the vertical, ordered by priority.
type RetailLinkResolver struct {
	topN int
}

// NewRetailLinkResolver creates a link resolver returning at most topN links
// per product.
func NewRetailLinkResolver(topN int) *RetailLinkResolver {
	if topN <= 0 {
		topN = 8
	}
	return &RetailLinkResolver{topN: topN}
}

// ResolveLinks builds the candidate purchase links for a product. When
// vintageHint is set, used marketplaces are promoted ahead of primary
// storefronts that will have dropped the product.
func (r *RetailLinkResolver) ResolveLinks(ctx context.Context, name, brand string, v verticals.Vertical, vintageHint bool) ([]CandidateLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError("links", ErrTimeout, "link resolution cancelled", err)
	}
	if strings.TrimSpace(name) == "" {
		return nil, NewError("links", ErrMalformed, "empty product name", nil)
	}

	query := strings.TrimSpace(name)
	if brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		query = brand + " " + query
	}
	escaped := url.QueryEscape(query)

	vintage := vintageHint || LooksVintage(name)

	chain := append([]retailer{}, verticalRetailers[v]...)
	chain = append(chain, commonRetailers...)

	links := make([]CandidateLink, 0, len(chain))
	for _, store := range chain {
		priority := store.priority
		if vintage {
			// Used marketplaces move to the front for discontinued gear.
			if store.usedMarket {
				priority -= 10
			} else {
				priority += 10
			}
		}
		links = append(links, CandidateLink{
			URL:          fmt.Sprintf(store.searchURL, escaped),
			SourceLabel:  store.label,
			Affiliatable: store.affiliatable,
			Priority:     priority,
		})
	}

	sort.SliceStable(links, func(i, j int) bool { return links[i].Priority < links[j].Priority })
	if len(links) > r.topN {
		links = links[:r.topN]
	}
	return links, nil
}
