package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"apicatalog/internal/model"
)

// maxFeedBytes bounds how much of a feed response is read.
const maxFeedBytes = 5 * 1024 * 1024

// RSSClient fetches syndication (RSS/Atom) feeds.
type RSSClient struct {
	client HTTPClient
}

// NewRSSClient creates an RSSClient with the given HTTP client.
func NewRSSClient(client HTTPClient) *RSSClient {
	return &RSSClient{client: client}
}

// Fetch downloads and parses the source's feed, newest items first as the
// feed presents them.
func (c *RSSClient) Fetch(ctx context.Context, source model.DiscoverySource) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		content := it.Description
		if content == "" {
			content = it.Content
		}
		published := time.Now().UTC()
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		}
		items = append(items, Item{
			Title:     it.Title,
			Link:      it.Link,
			Content:   content,
			Published: published,
			Source:    source.Name,
		})
	}
	return items, nil
}
