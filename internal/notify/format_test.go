package notify

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"apicatalog/internal/crawler"
	"apicatalog/internal/linkcheck"
)

func TestFormatCrawlReport(t *testing.T) {
	stats := &crawler.Stats{
		Total:    5,
		Success:  3,
		Failed:   2,
		Duration: 12500 * time.Millisecond,
		Errors: []crawler.EntryError{
			{Name: "Broken API", URL: "https://broken.example.com", Error: "page load timed out"},
			{Name: "Gone API", URL: "https://gone.example.com", Error: "non-success http status: 404"},
		},
	}

	got := FormatCrawlReport(stats)
	for _, want := range []string{
		"5 total, 3 ok, 2 failed (12.5s)",
		"Broken API (https://broken.example.com): page load timed out",
		"Gone API",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
}

func TestFormatCrawlReportTruncatesErrors(t *testing.T) {
	stats := &crawler.Stats{Total: 20, Failed: 15}
	for i := 0; i < 15; i++ {
		stats.Errors = append(stats.Errors, crawler.EntryError{
			Name: fmt.Sprintf("API %d", i), URL: "https://example.com", Error: "down",
		})
	}

	got := FormatCrawlReport(stats)
	if !strings.Contains(got, "and 5 more") {
		t.Errorf("report missing truncation marker:\n%s", got)
	}
	if strings.Contains(got, "API 12") {
		t.Errorf("report lists errors past the cap:\n%s", got)
	}
}

func TestFormatLinkCheckReport(t *testing.T) {
	results := []linkcheck.Result{
		{Name: "Steady", Status: linkcheck.StatusOK},
		{Name: "Moved", Status: linkcheck.StatusRedirected, PreviousURL: "https://old.example.com", NewURL: "https://new.example.com"},
		{Name: "Shifted", Status: linkcheck.StatusHashChanged, PreviousURL: "https://shifted.example.com"},
		{Name: "Down", Status: linkcheck.StatusError, Error: "connection refused"},
	}

	got := FormatLinkCheckReport(results)
	for _, want := range []string{
		"3 of 4 entries changed or failing",
		"Moved redirected: https://old.example.com",
		"Shifted content changed",
		"Down failed: connection refused",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Steady") {
		t.Errorf("report lists unchanged entries:\n%s", got)
	}
}

func TestFormatLinkCheckReportAllOK(t *testing.T) {
	results := []linkcheck.Result{
		{Name: "A", Status: linkcheck.StatusOK},
		{Name: "B", Status: linkcheck.StatusOK},
	}
	if got := FormatLinkCheckReport(results); got != "" {
		t.Errorf("expected empty report, got:\n%s", got)
	}
	if got := FormatLinkCheckReport(nil); got != "" {
		t.Errorf("expected empty report for no results, got:\n%s", got)
	}
}
