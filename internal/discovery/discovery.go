// Package discovery orchestrates one discovery run: fetch candidate items
// from enabled sources, extract API products with the analyzer, deduplicate
// against the catalog, and persist new provisional entries.
package discovery

import (
	"context"
	"errors"
	"log/slog"

	"apicatalog/internal/analyzer"
	"apicatalog/internal/feed"
	"apicatalog/internal/metrics"
	"apicatalog/internal/model"
	"apicatalog/internal/slug"
	"apicatalog/internal/storage"
)

// Analyzer extracts a candidate from one item's text, or nothing.
type Analyzer interface {
	Analyze(ctx context.Context, content, title string) (*analyzer.Candidate, error)
}

// Result records the outcome for one analyzed item.
type Result struct {
	Name   string
	Status string // "created", "duplicate", "rejected"
}

// Summary aggregates the outcome of one discovery run.
type Summary struct {
	ProcessedCount int
	CreatedCount   int
	Results        []Result
}

// Coordinator runs the discovery pipeline.
type Coordinator struct {
	store         storage.Storage
	clients       map[model.SourceKind]feed.Client
	analyzer      Analyzer
	minConfidence float64
	perSourceCap  int
	log           *slog.Logger
}

// New creates a Coordinator. analyzer may be nil when no inference key is
// configured; the run then degrades to a no-op.
func New(store storage.Storage, clients map[model.SourceKind]feed.Client, a Analyzer, minConfidence float64, perSourceCap int, log *slog.Logger) *Coordinator {
	return &Coordinator{
		store:         store,
		clients:       clients,
		analyzer:      a,
		minConfidence: minConfidence,
		perSourceCap:  perSourceCap,
		log:           log,
	}
}

// DefaultSources are seeded on first run when no sources are configured.
func DefaultSources() []model.DiscoverySource {
	return []model.DiscoverySource{
		{Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Kind: model.KindRSS, Enabled: true},
		{Name: "Hacker News", URL: "https://hnrss.org/newest", Kind: model.KindRSS, Enabled: true},
		{Name: "Product Hunt", URL: "https://www.producthunt.com/feed", Kind: model.KindRSS, Enabled: true},
		{Name: "GitHub Trending", URL: "https://api.github.com", Kind: model.KindGitHub, Enabled: true},
	}
}

// Run executes one discovery batch. It stops once maxItems new catalog
// entries have been created, and never fails because an individual source,
// inference call, or insert did.
func (c *Coordinator) Run(ctx context.Context, maxItems int) (*Summary, error) {
	summary := &Summary{}

	if c.analyzer == nil {
		c.log.Warn("no analyzer configured, skipping discovery run")
		return summary, nil
	}

	sources, err := c.store.ListEnabledSources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		if err := c.store.SeedSources(ctx, DefaultSources()); err != nil {
			return nil, err
		}
		sources, err = c.store.ListEnabledSources(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, source := range sources {
		if summary.CreatedCount >= maxItems {
			break
		}
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		c.processSource(ctx, source, maxItems, summary)
	}

	c.log.Info("discovery run finished",
		"processed", summary.ProcessedCount, "created", summary.CreatedCount)
	return summary, nil
}

func (c *Coordinator) processSource(ctx context.Context, source model.DiscoverySource, maxItems int, summary *Summary) {
	client, ok := c.clients[source.Kind]
	if !ok {
		c.log.Warn("no client for source kind", "source", source.Name, "kind", source.Kind)
		return
	}

	c.log.Debug("fetching source", "source", source.Name, "url", source.URL)
	items, err := client.Fetch(ctx, source)
	if err != nil {
		// A broken source must not abort discovery for the others.
		c.log.Error("fetch source", "source", source.Name, "error", err)
		items = nil
	}

	// Per-source fan-out is capped so one noisy source cannot starve the rest.
	inspected := 0
	for _, item := range items {
		if summary.CreatedCount >= maxItems || inspected >= c.perSourceCap {
			break
		}
		if ctx.Err() != nil {
			return
		}

		logged, err := c.store.HasDiscoveryLog(ctx, source.ID, item.Title)
		if err != nil {
			c.log.Error("check discovery log", "source", source.Name, "title", item.Title, "error", err)
			continue
		}
		if logged {
			continue
		}

		inspected++
		c.processItem(ctx, source, item, summary)
	}

	if err := c.store.UpdateSourceChecked(ctx, source.ID); err != nil {
		c.log.Error("update source checked", "source", source.Name, "error", err)
	}
}

func (c *Coordinator) processItem(ctx context.Context, source model.DiscoverySource, item feed.Item, summary *Summary) {
	summary.ProcessedCount++

	cand, err := c.analyzer.Analyze(ctx, item.Content, item.Title)
	if err != nil {
		c.log.Error("analyze item", "title", item.Title, "error", err)
		cand = nil
	}
	if cand == nil || cand.Confidence < c.minConfidence {
		c.reject(ctx, source, item)
		name := item.Title
		if cand != nil {
			name = cand.Name
		}
		summary.Results = append(summary.Results, Result{Name: name, Status: "rejected"})
		metrics.DiscoveryItemsTotal.WithLabelValues("rejected").Inc()
		return
	}

	status, err := c.createEntry(ctx, source, item, cand)
	if err != nil {
		c.log.Error("create entry", "name", cand.Name, "error", err)
		metrics.DiscoveryItemsTotal.WithLabelValues("error").Inc()
		return
	}

	if status == model.LogCreated {
		summary.CreatedCount++
		summary.Results = append(summary.Results, Result{Name: cand.Name, Status: "created"})
		metrics.DiscoveryItemsTotal.WithLabelValues("created").Inc()
		c.log.Info("created catalog entry", "name", cand.Name, "source", source.Name, "confidence", cand.Confidence)
	} else {
		summary.Results = append(summary.Results, Result{Name: cand.Name, Status: "duplicate"})
		metrics.DiscoveryItemsTotal.WithLabelValues("duplicate").Inc()
		c.log.Debug("duplicate candidate skipped", "name", cand.Name, "source", source.Name)
	}
}

func (c *Coordinator) reject(ctx context.Context, source model.DiscoverySource, item feed.Item) {
	err := c.store.AppendDiscoveryLog(ctx, &model.DiscoveryLog{
		SourceID: source.ID,
		Title:    item.Title,
		URL:      item.Link,
		Status:   model.LogRejected,
	})
	if err != nil && !errors.Is(err, storage.ErrConflict) {
		c.log.Error("append discovery log", "title", item.Title, "error", err)
	}
}

// createEntry deduplicates the candidate against the catalog and creates the
// provider and entry when no match exists. Uniqueness races with concurrent
// runs surface as storage.ErrConflict and are treated as duplicates.
func (c *Coordinator) createEntry(ctx context.Context, source model.DiscoverySource, item feed.Item, cand *analyzer.Candidate) (model.LogStatus, error) {
	provider, err := c.store.GetProviderByName(ctx, cand.Name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		provider = &model.Provider{Name: cand.Name, Website: cand.URL}
		if err := c.store.CreateProvider(ctx, provider); err != nil {
			if !errors.Is(err, storage.ErrConflict) {
				return "", err
			}
			// Lost the race: another run inserted the provider first.
			provider, err = c.store.GetProviderByName(ctx, cand.Name)
			if err != nil {
				return "", err
			}
		}
	case err != nil:
		return "", err
	}

	entrySlug := slug.Make(cand.Name)
	status := model.LogCreated

	if _, err := c.store.FindApiBySlug(ctx, entrySlug); err == nil {
		status = model.LogDuplicate
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	if status == model.LogCreated {
		if _, err := c.store.FindApiByProviderName(ctx, provider.ID, cand.Name); err == nil {
			status = model.LogDuplicate
		} else if !errors.Is(err, storage.ErrNotFound) {
			return "", err
		}
	}

	if status == model.LogCreated {
		docsURL := cand.URL
		if docsURL == "" {
			docsURL = item.Link
		}
		category := cand.Category
		if category == "" {
			category = "Uncategorized"
		}
		api := &model.Api{
			Slug:        entrySlug,
			Name:        cand.Name,
			ProviderID:  provider.ID,
			Category:    category,
			Description: cand.Description,
			DocsURL:     docsURL,
			Status:      model.StatusPending,
			Source:      model.SourceCrawled,
		}
		if err := c.store.CreateApi(ctx, api); err != nil {
			if !errors.Is(err, storage.ErrConflict) {
				return "", err
			}
			status = model.LogDuplicate
		}
	}

	err = c.store.AppendDiscoveryLog(ctx, &model.DiscoveryLog{
		SourceID: source.ID,
		Title:    item.Title,
		URL:      item.Link,
		Status:   status,
	})
	if err != nil && !errors.Is(err, storage.ErrConflict) {
		c.log.Error("append discovery log", "title", item.Title, "error", err)
	}
	return status, nil
}
