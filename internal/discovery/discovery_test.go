package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"apicatalog/internal/analyzer"
	"apicatalog/internal/feed"
	"apicatalog/internal/metrics"
	"apicatalog/internal/model"
	"apicatalog/internal/storage"
)

type mockClient struct {
	items map[string][]feed.Item // by source URL
	err   error
}

func (m *mockClient) Fetch(_ context.Context, source model.DiscoverySource) ([]feed.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items[source.URL], nil
}

// mockAnalyzer recognizes titles of the form "New API: <Name>" and declines
// everything else. Confidence per name is configurable.
type mockAnalyzer struct {
	confidence map[string]float64
	calls      int
}

func (m *mockAnalyzer) Analyze(_ context.Context, _, title string) (*analyzer.Candidate, error) {
	m.calls++
	const prefix = "New API: "
	if len(title) <= len(prefix) || title[:len(prefix)] != prefix {
		return nil, nil
	}
	name := title[len(prefix):]
	conf, ok := m.confidence[name]
	if !ok {
		conf = 0.9
	}
	return &analyzer.Candidate{
		Name:        name,
		Description: "A developer API",
		URL:         "https://" + name + ".example.com/docs",
		Category:    "Developer Tools",
		Confidence:  conf,
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedSource(t *testing.T, s storage.Storage, url string) model.DiscoverySource {
	t.Helper()
	ctx := context.Background()
	if err := s.SeedSources(ctx, []model.DiscoverySource{
		{Name: url, URL: url, Kind: model.KindRSS, Enabled: true},
	}); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	sources, err := s.ListEnabledSources(ctx)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	for _, src := range sources {
		if src.URL == url {
			return src
		}
	}
	t.Fatalf("seeded source %s not found", url)
	return model.DiscoverySource{}
}

func newCoordinator(s storage.Storage, client feed.Client, a Analyzer) *Coordinator {
	clients := map[model.SourceKind]feed.Client{model.KindRSS: client}
	return New(s, clients, a, 0.70, 10, discardLogger())
}

func TestRunCreatesEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	client := &mockClient{items: map[string][]feed.Item{
		src.URL: {
			{Title: "New API: SuperData", Link: "https://blog.example.com/1", Content: "SuperData launched an API"},
			{Title: "Weekly digest", Link: "https://blog.example.com/2", Content: "nothing here"},
		},
	}}
	coord := newCoordinator(s, client, &mockAnalyzer{})

	summary, err := coord.Run(ctx, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := &Summary{
		ProcessedCount: 2,
		CreatedCount:   1,
		Results: []Result{
			{Name: "SuperData", Status: "created"},
			{Name: "Weekly digest", Status: "rejected"},
		},
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	api, err := s.FindApiBySlug(ctx, "superdata")
	if err != nil {
		t.Fatalf("find created entry: %v", err)
	}
	if api.Status != model.StatusPending {
		t.Errorf("status = %s, want PENDING", api.Status)
	}
	if api.Source != model.SourceCrawled {
		t.Errorf("source = %s, want CRAWLED", api.Source)
	}
	if api.DocsURL != "https://SuperData.example.com/docs" {
		t.Errorf("docs url = %s", api.DocsURL)
	}

	if _, err := s.GetProviderByName(ctx, "SuperData"); err != nil {
		t.Errorf("provider not created: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	client := &mockClient{items: map[string][]feed.Item{
		src.URL: {
			{Title: "New API: SuperData", Link: "https://blog.example.com/1", Content: "launch"},
			{Title: "Weekly digest", Link: "https://blog.example.com/2", Content: "noise"},
		},
	}}
	a := &mockAnalyzer{}
	coord := newCoordinator(s, client, a)

	if _, err := coord.Run(ctx, 3); err != nil {
		t.Fatalf("first run: %v", err)
	}
	callsAfterFirst := a.calls

	summary, err := coord.Run(ctx, 3)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	// Every item was logged on the first run, so the second run skips them
	// before the analyzer is consulted.
	if summary.ProcessedCount != 0 {
		t.Errorf("second run processed %d items, want 0", summary.ProcessedCount)
	}
	if a.calls != callsAfterFirst {
		t.Errorf("analyzer called %d more times on second run", a.calls-callsAfterFirst)
	}
}

func TestConfidenceThreshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       string
	}{
		{name: "above threshold", confidence: 0.71, want: "created"},
		{name: "exactly at threshold", confidence: 0.70, want: "created"},
		{name: "below threshold", confidence: 0.69, want: "rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t)
			src := seedSource(t, s, "https://feed.example.com/rss")

			client := &mockClient{items: map[string][]feed.Item{
				src.URL: {{Title: "New API: Borderline", Link: "https://blog.example.com/1", Content: "launch"}},
			}}
			a := &mockAnalyzer{confidence: map[string]float64{"Borderline": tt.confidence}}

			summary, err := newCoordinator(s, client, a).Run(ctx, 3)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(summary.Results) != 1 || summary.Results[0].Status != tt.want {
				t.Errorf("results = %+v, want one %q", summary.Results, tt.want)
			}
		})
	}
}

func TestDuplicatesCollapse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	// Two differently-titled items announcing the same product, differing
	// only in case. Both slug and (provider, name) dedup must catch this.
	client := &mockClient{items: map[string][]feed.Item{
		src.URL: {
			{Title: "New API: SuperData", Link: "https://blog.example.com/1", Content: "launch"},
			{Title: "New API: superdata", Link: "https://blog.example.com/2", Content: "repost"},
		},
	}}
	coord := newCoordinator(s, client, &mockAnalyzer{})

	summary, err := coord.Run(ctx, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.CreatedCount != 1 {
		t.Fatalf("created = %d, want 1", summary.CreatedCount)
	}
	want := []Result{
		{Name: "SuperData", Status: "created"},
		{Name: "superdata", Status: "duplicate"},
	}
	if diff := cmp.Diff(want, summary.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxItemsStopsRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	var items []feed.Item
	for i := 0; i < 10; i++ {
		items = append(items, feed.Item{
			Title:   fmt.Sprintf("New API: Product%d", i),
			Link:    fmt.Sprintf("https://blog.example.com/%d", i),
			Content: "launch",
		})
	}
	client := &mockClient{items: map[string][]feed.Item{src.URL: items}}

	coord := New(s, map[model.SourceKind]feed.Client{model.KindRSS: client}, &mockAnalyzer{}, 0.70, 20, discardLogger())
	summary, err := coord.Run(ctx, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.CreatedCount != 3 {
		t.Errorf("created = %d, want 3", summary.CreatedCount)
	}
	if summary.ProcessedCount != 3 {
		t.Errorf("processed = %d, want 3", summary.ProcessedCount)
	}
}

func TestPerSourceCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	var items []feed.Item
	for i := 0; i < 8; i++ {
		items = append(items, feed.Item{
			Title:   fmt.Sprintf("Item %d", i),
			Link:    fmt.Sprintf("https://blog.example.com/%d", i),
			Content: "noise",
		})
	}
	client := &mockClient{items: map[string][]feed.Item{src.URL: items}}

	coord := New(s, map[model.SourceKind]feed.Client{model.KindRSS: client}, &mockAnalyzer{}, 0.70, 5, discardLogger())
	summary, err := coord.Run(ctx, 10)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.ProcessedCount != 5 {
		t.Errorf("processed = %d, want 5 (per-source cap)", summary.ProcessedCount)
	}
}

func TestBrokenSourceDoesNotAbortRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if err := s.SeedSources(ctx, []model.DiscoverySource{
		{Name: "broken", URL: "https://broken.example.com/rss", Kind: model.KindGitHub, Enabled: true},
		{Name: "healthy", URL: "https://healthy.example.com/rss", Kind: model.KindRSS, Enabled: true},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rss := &mockClient{items: map[string][]feed.Item{
		"https://healthy.example.com/rss": {
			{Title: "New API: SuperData", Link: "https://blog.example.com/1", Content: "launch"},
		},
	}}
	github := &mockClient{err: errors.New("rate limited")}
	clients := map[model.SourceKind]feed.Client{
		model.KindRSS:    rss,
		model.KindGitHub: github,
	}

	coord := New(s, clients, &mockAnalyzer{}, 0.70, 10, discardLogger())
	summary, err := coord.Run(ctx, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.CreatedCount != 1 {
		t.Errorf("created = %d, want 1 from the healthy source", summary.CreatedCount)
	}
}

func TestNilAnalyzerSkipsRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	client := &mockClient{items: map[string][]feed.Item{
		src.URL: {{Title: "New API: SuperData", Link: "https://blog.example.com/1"}},
	}}
	coord := New(s, map[model.SourceKind]feed.Client{model.KindRSS: client}, nil, 0.70, 10, discardLogger())

	summary, err := coord.Run(ctx, 3)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.ProcessedCount != 0 || summary.CreatedCount != 0 {
		t.Errorf("expected no-op summary, got %+v", summary)
	}
}

func TestRunCountsOutcomes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := seedSource(t, s, "https://feed.example.com/rss")

	client := &mockClient{items: map[string][]feed.Item{
		src.URL: {
			{Title: "New API: SuperData", Link: "https://blog.example.com/1", Content: "launch"},
			{Title: "Weekly digest", Link: "https://blog.example.com/2", Content: "noise"},
		},
	}}
	coord := newCoordinator(s, client, &mockAnalyzer{})

	// Counters are process-global, so assert deltas.
	createdBefore := testutil.ToFloat64(metrics.DiscoveryItemsTotal.WithLabelValues("created"))
	rejectedBefore := testutil.ToFloat64(metrics.DiscoveryItemsTotal.WithLabelValues("rejected"))

	if _, err := coord.Run(ctx, 3); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := testutil.ToFloat64(metrics.DiscoveryItemsTotal.WithLabelValues("created")) - createdBefore; got != 1 {
		t.Errorf("created counter delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DiscoveryItemsTotal.WithLabelValues("rejected")) - rejectedBefore; got != 1 {
		t.Errorf("rejected counter delta = %v, want 1", got)
	}
}

func TestRunSeedsDefaultSources(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	clients := map[model.SourceKind]feed.Client{
		model.KindRSS:    &mockClient{},
		model.KindGitHub: &mockClient{},
	}
	coord := New(s, clients, &mockAnalyzer{}, 0.70, 10, discardLogger())
	if _, err := coord.Run(ctx, 3); err != nil {
		t.Fatalf("run: %v", err)
	}

	sources, err := s.ListEnabledSources(ctx)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != len(DefaultSources()) {
		t.Errorf("seeded %d sources, want %d", len(sources), len(DefaultSources()))
	}
}
