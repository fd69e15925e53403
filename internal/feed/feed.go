// Package feed pulls raw candidate items from external discovery sources and
// normalizes them into a common shape.
package feed

import (
	"context"
	"net/http"
	"time"

	"apicatalog/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Item is a normalized candidate item pulled from a discovery source.
type Item struct {
	Title     string
	Link      string
	Content   string
	Published time.Time
	Source    string
}

// Client fetches candidate items for one discovery source.
type Client interface {
	Fetch(ctx context.Context, source model.DiscoverySource) ([]Item, error)
}

const userAgent = "APICatalogBot/1.0"
