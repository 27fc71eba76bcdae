package adapters

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/jonathan/gear-discovery/internal/fetch"
)

// WebPageReader implements PageReader with a direct HTTP fetch first and a
// headless browser render as the fallback for JavaScript-rendered pages.
type WebPageReader struct {
	fetcher        *fetch.CachedFetcher
	browserTimeout time.Duration
	browserEnabled bool
	verbose        bool
}

// PageReaderOption customizes a WebPageReader.
type PageReaderOption func(*WebPageReader)

// WithoutBrowser disables the headless render fallback (test environments
// without Chrome installed).
func WithoutBrowser() PageReaderOption {
	return func(r *WebPageReader) { r.browserEnabled = false }
}

// WithPageVerbose enables progress logging.
func WithPageVerbose(v bool) PageReaderOption {
	return func(r *WebPageReader) { r.verbose = v }
}

// WithFetcher swaps the underlying cached fetcher.
func WithFetcher(f *fetch.CachedFetcher) PageReaderOption {
	return func(r *WebPageReader) { r.fetcher = f }
}

// NewWebPageReader creates a page reader backed by the shared page cache.
func NewWebPageReader(opts ...PageReaderOption) *WebPageReader {
	r := &WebPageReader{
		fetcher:        fetch.NewCachedFetcher(nil),
		browserTimeout: 45 * time.Second,
		browserEnabled: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadPage returns the readable text of a URL. When the direct fetch yields
// too little text the page is re-rendered in a headless browser before the
// URL is declared unreachable.
func (r *WebPageReader) ReadPage(ctx context.Context, url string) (string, error) {
	platform := fetch.DetectPlatform(url)
	contentSelectors := fetch.PlatformContentSelectors(platform)
	noiseSelectors := fetch.PlatformNoiseSelectors(platform)

	var html string
	result, err := r.fetcher.Fetch(ctx, url)
	if err == nil {
		html = result.HTML
	}

	text := ""
	if html != "" {
		text, _ = fetch.ExtractMainText(html, contentSelectors, noiseSelectors...)
	}

	if fetch.ShouldUseBrowser(text) && r.browserEnabled {
		if r.verbose {
			log.Printf("[Page] Thin content from %s, retrying with browser render", url)
		}
		rendered, browserErr := fetch.WithBrowser(ctx, url, r.browserTimeout, r.verbose)
		if browserErr == nil {
			if renderedText, extractErr := fetch.ExtractMainText(rendered, contentSelectors, noiseSelectors...); extractErr == nil && len(renderedText) > len(text) {
				text = renderedText
			}
		}
	}

	if text == "" {
		return "", r.unreachable(ctx, url, err)
	}
	return text, nil
}

// ReadHTML returns the raw document for a URL, for callers that scrape markup
// (image tags, Open Graph metadata). No browser fallback: markup consumers
// tolerate server-rendered pages only.
func (r *WebPageReader) ReadHTML(ctx context.Context, url string) (string, error) {
	result, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", r.unreachable(ctx, url, err)
	}
	return result.HTML, nil
}

func (r *WebPageReader) unreachable(ctx context.Context, url string, cause error) error {
	if ctx.Err() != nil || errors.Is(cause, context.DeadlineExceeded) {
		return NewError("page", ErrTimeout, "page fetch timed out: "+url, cause)
	}
	return NewError("page", ErrUnreachable, "no readable content at "+url, cause)
}
