// Package model defines the domain types used across the application.
package model

import "time"

// ApiStatus is the lifecycle state of a catalog entry.
type ApiStatus string

// Catalog entry statuses. Discovery creates entries as PENDING; the crawl
// pipeline only ever moves entries between ACTIVE and BROKEN. INACTIVE is
// set by administrative action outside this pipeline.
const (
	StatusPending  ApiStatus = "PENDING"
	StatusActive   ApiStatus = "ACTIVE"
	StatusBroken   ApiStatus = "BROKEN"
	StatusInactive ApiStatus = "INACTIVE"
)

// ApiSource records how a catalog entry came to exist.
type ApiSource string

// Supported entry origins.
const (
	SourceManual  ApiSource = "MANUAL"
	SourceCrawled ApiSource = "CRAWLED"
)

// SourceKind is the type of a discovery source.
type SourceKind string

// Supported discovery source kinds.
const (
	KindRSS    SourceKind = "RSS"
	KindGitHub SourceKind = "GITHUB"
)

// LogStatus is the outcome recorded for a processed discovery item.
type LogStatus string

// Discovery log outcomes.
const (
	LogCreated   LogStatus = "CREATED"
	LogRejected  LogStatus = "REJECTED"
	LogDuplicate LogStatus = "DUPLICATE"
)

// Provider is a vendor that owns one or more catalog entries.
type Provider struct {
	ID        int64
	Name      string
	Website   string
	LogoURL   *string
	Contact   *string
	CreatedAt time.Time
}

// Api is a catalog entry for a third-party API product.
type Api struct {
	ID              int64
	Slug            string
	Name            string
	ProviderID      int64
	Category        string
	Description     string
	DocsURL         string
	Status          ApiStatus
	Source          ApiSource
	Verified        bool
	Tags            []string
	PricingURL      *string
	RegistrationURL *string
	ChangelogURL    *string
	LogoURL         *string
	PricingModel    *string
	SupportChannels *string
	FreeTierNote    *string
	LastHash        *string
	ResponseTimeMS  *int
	LastCheckedAt   *time.Time
	CreatedAt       time.Time
}

// DiscoverySource is a configured external feed polled for candidates.
type DiscoverySource struct {
	ID            int64
	Name          string
	URL           string
	Kind          SourceKind
	Enabled       bool
	LastCheckedAt *time.Time
	CreatedAt     time.Time
}

// DiscoveryLog records the outcome of one processed feed item, keyed by
// (source, title) for idempotence across repeated runs.
type DiscoveryLog struct {
	ID        int64
	SourceID  int64
	Title     string
	URL       string
	Status    LogStatus
	CreatedAt time.Time
}

// PricingHistory is an audit row appended when the link checker observes a
// content-hash change on an entry's documentation page.
type PricingHistory struct {
	ID           int64
	ApiID        int64
	PreviousHash *string
	NewHash      string
	URL          string
	CapturedAt   time.Time
}
