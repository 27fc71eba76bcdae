package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTimedTextBase is the public caption endpoint. Videos without
// captions return an empty body rather than an error status.
const defaultTimedTextBase = "https://video.google.com/timedtext"

// TimedTextClient implements TranscriptFetcher against the YouTube timedtext
// endpoint.
type TimedTextClient struct {
	httpClient *http.Client
	baseURL    string
	languages  []string
}

// TimedTextOption customizes a TimedTextClient.
type TimedTextOption func(*TimedTextClient)

// WithTimedTextBaseURL overrides the caption endpoint, used by tests.
func WithTimedTextBaseURL(base string) TimedTextOption {
	return func(c *TimedTextClient) { c.baseURL = base }
}

// WithTimedTextLanguages sets the caption languages tried in order.
func WithTimedTextLanguages(langs ...string) TimedTextOption {
	return func(c *TimedTextClient) { c.languages = langs }
}

// NewTimedTextClient creates a transcript fetcher.
func NewTimedTextClient(opts ...TimedTextOption) *TimedTextClient {
	c := &TimedTextClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    defaultTimedTextBase,
		languages:  []string{"en", "en-US"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type timedTextDocument struct {
	XMLName xml.Name        `xml:"transcript"`
	Lines   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Body string `xml:",chardata"`
}

// Transcript fetches and flattens the caption track for a video. Videos with
// captions disabled or absent yield ErrUnavailable.
func (c *TimedTextClient) Transcript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", NewError("transcript", ErrMalformed, "empty video id", nil)
	}

	for _, lang := range c.languages {
		text, err := c.fetchTrack(ctx, videoID, lang)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}

	return "", NewError("transcript", ErrUnavailable,
		fmt.Sprintf("no caption track for video %s", videoID), nil)
}

func (c *TimedTextClient) fetchTrack(ctx context.Context, videoID, lang string) (string, error) {
	endpoint := fmt.Sprintf("%s?lang=%s&v=%s", c.baseURL, url.QueryEscape(lang), url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", NewError("transcript", ErrMalformed, "failed to build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", NewError("transcript", ErrTimeout, "caption fetch timed out", err)
		}
		return "", NewError("transcript", ErrUnreachable, "caption fetch failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", NewError("transcript", ErrRateLimited, "caption endpoint rate limited", nil)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewError("transcript", ErrUnreachable,
			fmt.Sprintf("caption endpoint returned %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewError("transcript", ErrUnreachable, "failed to read caption body", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		// No track for this language.
		return "", nil
	}

	var doc timedTextDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", NewError("transcript", ErrMalformed, "failed to parse caption XML", err)
	}

	var sb strings.Builder
	for _, line := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Body))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
