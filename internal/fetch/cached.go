// Package fetch provides generic URL fetching with optional caching.
package fetch

import (
	"context"
	"sync"
	"time"
)

// DefaultPageCacheTTL is how long a fetched page stays fresh. Runs within the
// same scheduling window frequently revisit the same review articles.
const DefaultPageCacheTTL = 6 * time.Hour

// CachedFetcher wraps URL fetching with an in-memory TTL cache. A single run
// resolves links and scrapes images for many candidates that share pages, so
// repeat fetches within the TTL are served from memory.
type CachedFetcher struct {
	mu        sync.Mutex
	pages     map[string]cachedPage
	options   *Options
	cacheTTL  time.Duration
	skipCache bool // for testing or forcing fresh fetches
}

type cachedPage struct {
	result    *Result
	fetchedAt time.Time
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheTTL:  DefaultPageCacheTTL,
		SkipCache: false,
		Options:   DefaultOptions(),
	}
}

// NewCachedFetcher creates a new cached fetcher.
func NewCachedFetcher(config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.Options == nil {
		config.Options = DefaultOptions()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultPageCacheTTL
	}
	return &CachedFetcher{
		pages:     make(map[string]cachedPage),
		options:   config.Options,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
	}
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool
}

// Fetch retrieves a URL, serving from cache when the entry is within TTL.
// Only successful fetches are cached; failures are always retried fresh.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	if !f.skipCache {
		if cached, ok := f.lookup(urlStr); ok {
			return &CachedResult{Result: cached, FromCache: true}, nil
		}
	}

	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		return nil, err
	}

	text, _ := ExtractMainText(result.HTML, DefaultTextSelectors())
	result.Text = text

	f.store(urlStr, result)
	return &CachedResult{Result: result, FromCache: false}, nil
}

// Invalidate drops a cached page, forcing a re-fetch on the next request.
func (f *CachedFetcher) Invalidate(urlStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pages, urlStr)
}

func (f *CachedFetcher) lookup(urlStr string) (*Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.pages[urlStr]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > f.cacheTTL {
		delete(f.pages, urlStr)
		return nil, false
	}
	return entry.result, true
}

func (f *CachedFetcher) store(urlStr string, result *Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[urlStr] = cachedPage{result: result, fetchedAt: time.Now()}
}
