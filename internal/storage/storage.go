// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"apicatalog/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a uniqueness constraint,
// typically a race with a concurrent run or pre-existing data.
var ErrConflict = errors.New("conflict")

// Storage is the interface for all persistence operations. The pipeline only
// ever talks to the store through these shapes.
type Storage interface {
	CreateProvider(ctx context.Context, p *model.Provider) error
	GetProviderByName(ctx context.Context, name string) (*model.Provider, error)
	UpdateProviderContact(ctx context.Context, id int64, contact string) error

	CreateApi(ctx context.Context, api *model.Api) error
	GetApi(ctx context.Context, id int64) (*model.Api, error)
	FindApiBySlug(ctx context.Context, slug string) (*model.Api, error)
	FindApiByProviderName(ctx context.Context, providerID int64, name string) (*model.Api, error)
	ListDueForCrawl(ctx context.Context, limit int) ([]model.Api, error)
	ListForLinkCheck(ctx context.Context, limit int) ([]model.Api, error)
	UpdateApi(ctx context.Context, api *model.Api) error
	UpdateApiStatus(ctx context.Context, id int64, status model.ApiStatus, responseTimeMS int) error

	ListEnabledSources(ctx context.Context) ([]model.DiscoverySource, error)
	SeedSources(ctx context.Context, sources []model.DiscoverySource) error
	UpdateSourceChecked(ctx context.Context, id int64) error

	HasDiscoveryLog(ctx context.Context, sourceID int64, title string) (bool, error)
	AppendDiscoveryLog(ctx context.Context, entry *model.DiscoveryLog) error

	AppendPricingHistory(ctx context.Context, h *model.PricingHistory) error

	Close() error
}
