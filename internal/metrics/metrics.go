// Package metrics defines Prometheus instrumentation for the batch pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// DiscoveryItemsTotal counts processed discovery items by outcome
	// (created, rejected, duplicate, error).
	DiscoveryItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_items_total",
			Help: "Total number of processed discovery items by outcome.",
		},
		[]string{"status"},
	)

	// CrawlsTotal counts crawl attempts by outcome (success, failure).
	CrawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawls_total",
			Help: "Total number of crawl attempts by outcome.",
		},
		[]string{"status"},
	)

	// CrawlDuration observes per-entry crawl durations.
	CrawlDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawl_duration_seconds",
			Help:    "Duration of single-page crawl operations.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
	)

	// LinkCheckTotal counts link-check classifications
	// (ok, redirected, hash_changed, error).
	LinkCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkcheck_results_total",
			Help: "Total number of link-check classifications.",
		},
		[]string{"status"},
	)
)

// Push delivers everything collected during the batch to a Pushgateway under
// the given job name. An empty gateway URL disables the push; the batch jobs
// exit right after, so there is no exposition endpoint to scrape instead.
func Push(gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	return push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).Push()
}
