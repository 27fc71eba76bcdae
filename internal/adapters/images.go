package adapters

import (
	"context"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// ImageSearchClient implements ImageSearcher against Google Custom Search in
// image mode.
type ImageSearchClient struct {
	svc *customsearch.Service
	cx  string
}

// NewImageSearchClient creates an image search client. cx is the search
// engine id configured for product image lookup.
func NewImageSearchClient(ctx context.Context, apiKey, cx string) (*ImageSearchClient, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("API key and search engine id are required")
	}

	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}

	return &ImageSearchClient{svc: svc, cx: cx}, nil
}

// SearchImages returns ranked image URLs for a query. The API caps results
// at 10 per call, which covers every caller here.
func (c *ImageSearchClient) SearchImages(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > 10 {
		limit = 10
	}

	resp, err := c.svc.Cse.List().
		Context(ctx).
		Cx(c.cx).
		Q(query).
		SearchType("image").
		Num(int64(limit)).
		Do()
	if err != nil {
		return nil, classifyGoogleAPIError("images", err)
	}

	urls := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	return urls, nil
}
