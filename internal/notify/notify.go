// Package notify delivers batch reports to the configured notification
// collaborator.
package notify

import (
	"context"
	"log/slog"

	"apicatalog/internal/crawler"
	"apicatalog/internal/linkcheck"
)

// Notifier receives batch summaries after pipeline runs.
type Notifier interface {
	CrawlReport(ctx context.Context, stats *crawler.Stats) error
	LinkCheckReport(ctx context.Context, results []linkcheck.Result) error
}

// LogNotifier writes reports to the log. It is the fallback when no
// messaging channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// CrawlReport logs the batch summary.
func (n *LogNotifier) CrawlReport(_ context.Context, stats *crawler.Stats) error {
	n.log.Info("crawl report",
		"total", stats.Total, "success", stats.Success, "failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds())
	for _, e := range stats.Errors {
		n.log.Warn("crawl error", "name", e.Name, "url", e.URL, "error", e.Error)
	}
	return nil
}

// LinkCheckReport logs every non-ok classification.
func (n *LogNotifier) LinkCheckReport(_ context.Context, results []linkcheck.Result) error {
	for _, r := range results {
		if r.Status == linkcheck.StatusOK {
			continue
		}
		n.log.Info("link check result",
			"name", r.Name, "status", string(r.Status), "url", r.PreviousURL, "error", r.Error)
	}
	return nil
}
