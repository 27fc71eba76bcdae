package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// detailBatchSize is the maximum number of video IDs per videos.list call.
const detailBatchSize = 50

// YouTubeClient implements VideoSearcher against the YouTube Data API v3.
type YouTubeClient struct {
	svc *youtube.Service
}

// NewYouTubeClient creates a YouTube Data API client.
func NewYouTubeClient(ctx context.Context, apiKey string) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	svc, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &YouTubeClient{svc: svc}, nil
}

// Search runs one search.list call and returns lightweight video references.
func (c *YouTubeClient) Search(ctx context.Context, q SearchQuery) ([]VideoRef, error) {
	call := c.svc.Search.List([]string{"snippet"}).
		Context(ctx).
		Type("video").
		Q(q.Query)

	if q.ChannelID != "" {
		call = call.ChannelId(q.ChannelID)
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	if !q.PublishedAfter.IsZero() {
		call = call.PublishedAfter(q.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if q.Order != "" {
		call = call.Order(string(q.Order))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, classifyGoogleAPIError("search", err)
	}

	refs := make([]VideoRef, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		refs = append(refs, VideoRef{VideoID: item.Id.VideoId, Title: title})
	}
	return refs, nil
}

// Details fetches full metadata for the given video IDs, batching requests
// at the API's 50-id limit.
func (c *YouTubeClient) Details(ctx context.Context, videoIDs []string) ([]VideoDetail, error) {
	details := make([]VideoDetail, 0, len(videoIDs))

	for start := 0; start < len(videoIDs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		resp, err := c.svc.Videos.List([]string{"snippet", "statistics"}).
			Context(ctx).
			Id(videoIDs[start:end]...).
			Do()
		if err != nil {
			return nil, classifyGoogleAPIError("search", err)
		}

		for _, item := range resp.Items {
			details = append(details, videoDetailFromItem(item))
		}
	}

	return details, nil
}

func videoDetailFromItem(item *youtube.Video) VideoDetail {
	d := VideoDetail{VideoID: item.Id}
	if item.Snippet != nil {
		d.Title = item.Snippet.Title
		d.Description = item.Snippet.Description
		d.ChannelID = item.Snippet.ChannelId
		d.ChannelTitle = item.Snippet.ChannelTitle
		d.Tags = item.Snippet.Tags
		if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			d.PublishedAt = ts
		}
	}
	if item.Statistics != nil {
		d.ViewCount = int64(item.Statistics.ViewCount)
		d.LikeCount = int64(item.Statistics.LikeCount)
	}
	return d
}

// classifyGoogleAPIError maps Google API failures onto the adapter error
// taxonomy so callers can distinguish quota exhaustion from transient faults.
func classifyGoogleAPIError(adapter string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusForbidden:
			return NewError(adapter, ErrRateLimited, "quota exceeded or forbidden", err)
		case http.StatusNotFound:
			return NewError(adapter, ErrUnavailable, "resource not found", err)
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return NewError(adapter, ErrTimeout, "request timed out", err)
		}
		return NewError(adapter, ErrUnreachable, fmt.Sprintf("API error %d", apiErr.Code), err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(adapter, ErrTimeout, "request timed out", err)
	}
	return NewError(adapter, ErrUnreachable, "request failed", err)
}
