package adapters

import (
	"context"
	"time"

	"github.com/jonathan/gear-discovery/internal/verticals"
)

// SearchOrder controls result ordering for video search.
type SearchOrder string

// Search orderings supported by the video platform.
const (
	OrderViewCount SearchOrder = "viewCount"
	OrderRelevance SearchOrder = "relevance"
	OrderDate      SearchOrder = "date"
)

// SearchQuery describes one video search call.
type SearchQuery struct {
	Query          string
	ChannelID      string // restrict to a channel when set
	MaxResults     int64
	PublishedAfter time.Time // publish-date floor to bias toward recent content
	Order          SearchOrder
}

// VideoRef is a lightweight reference returned by search.
type VideoRef struct {
	VideoID string
	Title   string
}

// VideoDetail is the full metadata for one video.
type VideoDetail struct {
	VideoID      string
	Title        string
	Description  string
	ChannelID    string
	ChannelTitle string
	PublishedAt  time.Time
	ViewCount    int64
	LikeCount    int64
	Tags         []string
}

// URL returns the canonical watch URL for the video.
func (d VideoDetail) URL() string {
	return "https://www.youtube.com/watch?v=" + d.VideoID
}

// Mention is one product mention produced by text extraction.
type Mention struct {
	Name       string `json:"name"`
	BrandGuess string `json:"brand"`
	Confidence int    `json:"confidence"` // 0-100 extraction certainty
}

// ExtractionRequest carries the text and hints for one extraction call.
type ExtractionRequest struct {
	Text           string
	SourceTitle    string
	Vertical       verticals.Vertical
	BrandHints     []string
	ProductTypes   []string // product types expected in this vertical
	RecentProducts []string // recently discovered products, to bias toward fresh picks
	MaxMentions    int
}

// CandidateLink is a prospective purchase destination for a candidate product.
type CandidateLink struct {
	URL          string `json:"url"`
	SourceLabel  string `json:"source_label"`
	Affiliatable bool   `json:"affiliatable"`
	Priority     int    `json:"priority"` // lower is better
}

// VideoSearcher finds and describes videos on the external platform.
type VideoSearcher interface {
	Search(ctx context.Context, q SearchQuery) ([]VideoRef, error)
	Details(ctx context.Context, videoIDs []string) ([]VideoDetail, error)
}

// TranscriptFetcher retrieves the plain-text transcript for a video.
// Missing or disabled captions return ErrUnavailable.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}

// PageReader fetches a URL and returns its readable text, trying a direct
// fetch first and a rendering fallback second. ReadHTML returns the raw
// document for callers that need markup (image-tag scraping).
type PageReader interface {
	ReadPage(ctx context.Context, url string) (string, error)
	ReadHTML(ctx context.Context, url string) (string, error)
}

// ImageSearcher returns ranked candidate image URLs for a query.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, limit int) ([]string, error)
}

// MentionExtractor extracts product mentions from free text.
type MentionExtractor interface {
	ExtractMentions(ctx context.Context, req ExtractionRequest) ([]Mention, error)
}

// LinkResolver resolves the best purchase links for a product. vintageHint
// signals a likely discontinued product so the resolver avoids recommending
// dead storefronts.
type LinkResolver interface {
	ResolveLinks(ctx context.Context, name, brand string, v verticals.Vertical, vintageHint bool) ([]CandidateLink, error)
}

// Set bundles every adapter the pipeline needs. Agents depend on this
// struct so tests can swap in fakes per capability.
type Set struct {
	Videos      VideoSearcher
	Transcripts TranscriptFetcher
	Pages       PageReader
	Images      ImageSearcher
	Extractor   MentionExtractor
	Links       LinkResolver
}
