package crawler

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"apicatalog/internal/analyzer"
)

// ParsedInfo is the structured metadata extracted from one fetched page.
// Empty fields mean "unknown"; the scheduler never overwrites stored data
// with them.
type ParsedInfo struct {
	Title           string
	Description     string
	Category        string
	Tags            []string
	PricingURL      string
	DocsURL         string
	RegistrationURL string
	ChangelogURL    string
	LogoURL         string
	PricingModel    string
	FreeTierNote    string
	SupportChannels string
	Contact         string
	Confidence      float64
}

// ItemAnalyzer resolves fields the heuristics could not, using the
// extraction model. The parser works without one.
type ItemAnalyzer interface {
	Analyze(ctx context.Context, content, title string) (*analyzer.Candidate, error)
}

// Parser turns raw crawl results into ParsedInfo. The heuristic pass always
// runs and never fails; the AI pass is an optional enhancement.
type Parser struct {
	analyzer ItemAnalyzer
	log      *slog.Logger
}

// NewParser creates a Parser. a may be nil for heuristic-only operation.
func NewParser(a ItemAnalyzer, log *slog.Logger) *Parser {
	return &Parser{analyzer: a, log: log}
}

// aiExcerptLimit bounds how much page text goes into the enrichment call.
const aiExcerptLimit = 2000

// tagPatterns maps a content keyword regex to a tag candidate.
var tagPatterns = []struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`\brest(ful)?\b`), "REST"},
	{regexp.MustCompile(`\bgraphql\b`), "GraphQL"},
	{regexp.MustCompile(`\bwebhooks?\b`), "Webhooks"},
	{regexp.MustCompile(`\bpayments?\b`), "Payments"},
	{regexp.MustCompile(`\bcrypto(currency)?\b`), "Crypto"},
	{regexp.MustCompile(`\b(ai|machine learning|llm)\b`), "AI"},
	{regexp.MustCompile(`\b(maps?|geocod\w+|geolocation)\b`), "Maps"},
}

// Parse runs heuristic extraction over the page and, when an analyzer is
// configured, a second pass for ambiguous fields. It always returns a usable
// result, even for empty input.
func (p *Parser) Parse(ctx context.Context, result *CrawlResult) *ParsedInfo {
	content := strings.ToLower(result.Content)
	info := &ParsedInfo{Title: result.Title}

	info.Description = firstParagraph(result.Content, result.Title)

	info.PricingURL = findLink(result.Links, "pricing", "plans")
	info.DocsURL = findLink(result.Links, "docs", "documentation", "developer", "api-reference")
	info.RegistrationURL = findLink(result.Links, "signup", "register", "get-started", "start")
	info.ChangelogURL = findLink(result.Links, "changelog", "release-notes", "updates")
	if info.DocsURL == "" {
		// The crawled page itself is the best documentation pointer we have.
		info.DocsURL = result.FinalURL
	}

	for _, tp := range tagPatterns {
		if tp.re.MatchString(content) {
			info.Tags = append(info.Tags, tp.tag)
		}
	}

	info.PricingModel = classifyPricing(content)
	info.FreeTierNote = freeTierSentence(result.Content)
	info.SupportChannels = supportChannels(content)

	if len(result.MetaImages) > 0 {
		info.LogoURL = result.MetaImages[0]
	} else if len(result.Icons) > 0 {
		info.LogoURL = result.Icons[0]
	}
	if len(result.Contacts) > 0 {
		info.Contact = result.Contacts[0]
	}

	p.enrich(ctx, result, info)
	return info
}

// enrich asks the model to resolve description, category, and confidence.
// Any failure silently leaves the heuristic result in place.
func (p *Parser) enrich(ctx context.Context, result *CrawlResult, info *ParsedInfo) {
	if p.analyzer == nil {
		return
	}
	excerpt := truncate(result.Content, aiExcerptLimit)
	cand, err := p.analyzer.Analyze(ctx, excerpt, result.Title)
	if err != nil {
		p.log.Debug("ai enrichment failed", "url", result.URL, "error", err)
		return
	}
	if cand == nil {
		return
	}
	if cand.Description != "" {
		info.Description = cand.Description
	}
	if cand.Category != "" {
		info.Category = cand.Category
	}
	info.Confidence = cand.Confidence
}

// firstParagraph picks the first substantial line that is not just the page
// title, truncated to 200 characters.
func firstParagraph(content, title string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 50 {
			continue
		}
		if title != "" && strings.Contains(line, title) {
			continue
		}
		return truncate(line, 200)
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// findLink returns the first link whose lowercase form contains any keyword.
func findLink(links []string, keywords ...string) string {
	for _, link := range links {
		lower := strings.ToLower(link)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return link
			}
		}
	}
	return ""
}

func classifyPricing(content string) string {
	switch {
	case strings.Contains(content, "free tier") || strings.Contains(content, "freemium"):
		return "Freemium"
	case strings.Contains(content, "subscription") || strings.Contains(content, "per month") || strings.Contains(content, "monthly"):
		return "Subscription"
	case strings.Contains(content, "pay as you go") || strings.Contains(content, "pay-as-you-go") || strings.Contains(content, "usage based") || strings.Contains(content, "usage-based"):
		return "Pay-as-you-go"
	}
	return ""
}

var freeTierRe = regexp.MustCompile(`(?i)free (tier|plan)`)

// freeTierSentence returns the sentence mentioning a free tier, if any. The
// match is located on content itself, not a case-folded copy: folding can
// change byte offsets for some runes.
func freeTierSentence(content string) string {
	loc := freeTierRe.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	start := strings.LastIndexAny(content[:loc[0]], ".!?\n") + 1
	end := loc[1] + strings.IndexAny(content[loc[1]:]+".", ".!?\n")
	return truncate(strings.TrimSpace(content[start:end]), 200)
}

func supportChannels(content string) string {
	var channels []string
	if strings.Contains(content, "discord") {
		channels = append(channels, "Discord")
	}
	if strings.Contains(content, "slack") {
		channels = append(channels, "Slack")
	}
	if strings.Contains(content, "email") || strings.Contains(content, "contact") {
		channels = append(channels, "Email")
	}
	return strings.Join(channels, ", ")
}
