package curation

import (
	"context"
	"log"
	"strings"

	"github.com/jonathan/gear-discovery/internal/adapters"
	"github.com/jonathan/gear-discovery/internal/fetch"
)

// ImagePicker resolves a display image for a bag item. The chain runs
// cheapest-first: library image, then image search, then scraping the best
// purchase link's page. Every step is optional and failures degrade to the
// next step; an item without an image is still publishable.
type ImagePicker struct {
	searcher adapters.ImageSearcher
	pages    adapters.PageReader
	verbose  bool
}

// NewImagePicker creates a picker. Either adapter may be nil, which disables
// that step of the chain.
func NewImagePicker(searcher adapters.ImageSearcher, pages adapters.PageReader, verbose bool) *ImagePicker {
	return &ImagePicker{searcher: searcher, pages: pages, verbose: verbose}
}

// imageSearchLimit bounds how many results we ask for; only the first usable
// one is taken.
const imageSearchLimit = 5

// Pick returns an image URL for the item, or "" when nothing usable was
// found.
func (p *ImagePicker) Pick(ctx context.Context, name, brand string, match MatchResult, links []adapters.CandidateLink) string {
	if match.Matched && match.Product != nil && match.Product.ImageURL != "" {
		return match.Product.ImageURL
	}

	if url := p.fromSearch(ctx, name, brand); url != "" {
		return url
	}

	return p.fromLinkPage(ctx, links)
}

func (p *ImagePicker) fromSearch(ctx context.Context, name, brand string) string {
	if p.searcher == nil {
		return ""
	}

	query := name
	if brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		query = brand + " " + name
	}

	urls, err := p.searcher.SearchImages(ctx, query, imageSearchLimit)
	if err != nil {
		if p.verbose {
			log.Printf("image search failed for %q: %v", query, err)
		}
		return ""
	}
	for _, u := range urls {
		if strings.HasPrefix(u, "https://") {
			return u
		}
	}
	return ""
}

// fromLinkPage scrapes the top purchase link's page for a product image.
// Only the first link is tried; a second page fetch for an optional image is
// not worth the quota.
func (p *ImagePicker) fromLinkPage(ctx context.Context, links []adapters.CandidateLink) string {
	if p.pages == nil || len(links) == 0 {
		return ""
	}

	pageURL := links[0].URL
	html, err := p.pages.ReadHTML(ctx, pageURL)
	if err != nil {
		if p.verbose {
			log.Printf("image scrape failed for %s: %v", pageURL, err)
		}
		return ""
	}

	urls, err := fetch.ExtractImageURLs(html, pageURL, 1)
	if err != nil || len(urls) == 0 {
		return ""
	}
	return urls[0]
}
