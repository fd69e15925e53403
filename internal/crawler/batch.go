package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"apicatalog/internal/metrics"
	"apicatalog/internal/model"
)

// EntryError describes one failed crawl within a batch.
type EntryError struct {
	Name  string
	URL   string
	Error string
}

// Stats aggregates the outcome of one crawl batch. Total is always
// Success + Failed.
type Stats struct {
	Total    int
	Success  int
	Failed   int
	Duration time.Duration
	Errors   []EntryError
}

// Runner executes one crawl batch: select stale entries, fetch each over the
// shared engine under a concurrency bound, parse, and apply outcomes.
type Runner struct {
	engine      Engine
	parser      *Parser
	sched       *Scheduler
	concurrency int
	log         *slog.Logger
}

// NewRunner creates a Runner with the given concurrency bound.
func NewRunner(engine Engine, parser *Parser, sched *Scheduler, concurrency int, log *slog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		engine:      engine,
		parser:      parser,
		sched:       sched,
		concurrency: concurrency,
		log:         log,
	}
}

// Run crawls up to batchSize stale entries. Individual crawl failures mark
// the entry BROKEN and the batch continues; the only error this returns is a
// fatal startup failure (entry selection or engine init).
func (r *Runner) Run(ctx context.Context, batchSize int) (*Stats, error) {
	start := time.Now()

	entries, err := r.sched.ApisToCrawl(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	stats := &Stats{Total: len(entries)}
	if len(entries) == 0 {
		r.log.Info("no entries due for crawl")
		return stats, nil
	}

	if err := r.engine.Init(ctx); err != nil {
		return nil, fmt.Errorf("init crawler engine: %w", err)
	}
	defer r.engine.Close()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			outcome := r.crawlOne(gctx, entry)
			mu.Lock()
			if outcome == nil {
				stats.Success++
			} else {
				stats.Failed++
				stats.Errors = append(stats.Errors, *outcome)
			}
			mu.Unlock()
			// Per-entry failures are isolated; never abort the group.
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	r.log.Info("crawl batch finished",
		"total", stats.Total, "success", stats.Success, "failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds())
	return stats, nil
}

// crawlOne processes a single entry and returns nil on success or the error
// record for the stats.
func (r *Runner) crawlOne(ctx context.Context, entry model.Api) *EntryError {
	r.log.Debug("crawling entry", "id", entry.ID, "name", entry.Name, "url", entry.DocsURL)

	start := time.Now()
	result := r.engine.Crawl(ctx, entry.DocsURL)
	durationMS := int(time.Since(start).Milliseconds())
	metrics.CrawlDuration.Observe(time.Since(start).Seconds())

	if result.Err != nil {
		metrics.CrawlsTotal.WithLabelValues("failure").Inc()
		r.log.Warn("crawl failed", "id", entry.ID, "name", entry.Name, "error", result.Err)
		if err := r.sched.UpdateApiStatus(ctx, entry.ID, model.StatusBroken, durationMS); err != nil {
			r.log.Error("mark entry broken", "id", entry.ID, "error", err)
		}
		return &EntryError{Name: entry.Name, URL: entry.DocsURL, Error: result.Err.Error()}
	}

	info := r.parser.Parse(ctx, result)
	if err := r.sched.UpdateApiInfo(ctx, entry.ID, info, durationMS); err != nil {
		metrics.CrawlsTotal.WithLabelValues("failure").Inc()
		r.log.Error("apply crawl outcome", "id", entry.ID, "error", err)
		return &EntryError{Name: entry.Name, URL: entry.DocsURL, Error: err.Error()}
	}

	metrics.CrawlsTotal.WithLabelValues("success").Inc()
	return nil
}
