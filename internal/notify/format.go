package notify

import (
	"fmt"
	"strings"

	"apicatalog/internal/crawler"
	"apicatalog/internal/linkcheck"
)

// maxReportErrors bounds how many per-entry failures a report lists.
const maxReportErrors = 10

// FormatCrawlReport renders a crawl batch summary as a plain-text message.
func FormatCrawlReport(stats *crawler.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crawl batch finished: %d total, %d ok, %d failed (%.1fs)\n",
		stats.Total, stats.Success, stats.Failed, stats.Duration.Seconds())

	for i, e := range stats.Errors {
		if i == maxReportErrors {
			fmt.Fprintf(&b, "… and %d more\n", len(stats.Errors)-maxReportErrors)
			break
		}
		fmt.Fprintf(&b, "• %s (%s): %s\n", e.Name, e.URL, e.Error)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatLinkCheckReport renders the changed and failing entries of a
// link-check run. It returns "" when every entry came back ok.
func FormatLinkCheckReport(results []linkcheck.Result) string {
	var changed []linkcheck.Result
	for _, r := range results {
		if r.Status != linkcheck.StatusOK {
			changed = append(changed, r)
		}
	}
	if len(changed) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Link check: %d of %d entries changed or failing\n", len(changed), len(results))
	for i, r := range changed {
		if i == maxReportErrors {
			fmt.Fprintf(&b, "… and %d more\n", len(changed)-maxReportErrors)
			break
		}
		switch r.Status {
		case linkcheck.StatusRedirected:
			fmt.Fprintf(&b, "• %s redirected: %s → %s\n", r.Name, r.PreviousURL, r.NewURL)
		case linkcheck.StatusHashChanged:
			fmt.Fprintf(&b, "• %s content changed: %s\n", r.Name, r.PreviousURL)
		default:
			fmt.Fprintf(&b, "• %s failed: %s\n", r.Name, r.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
