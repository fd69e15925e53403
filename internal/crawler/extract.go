package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pageData holds the structural elements pulled out of a fetched page.
type pageData struct {
	Links      []string
	MetaImages []string
	Icons      []string
	Contacts   []string
}

// extractPage parses raw HTML and collects absolute links, meta images
// (og:image, twitter:image), icon links, and mailto contacts. Relative URLs
// are resolved against baseURL. Unparseable input yields an empty result.
func extractPage(html, baseURL string) pageData {
	var data pageData

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return data
	}
	base, _ := url.Parse(baseURL)

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		switch {
		case href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:"):
			return
		case strings.HasPrefix(href, "mailto:"):
			addr := strings.TrimSpace(strings.TrimPrefix(href, "mailto:"))
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			if strings.Contains(addr, "@") && !seen["mailto:"+addr] {
				seen["mailto:"+addr] = true
				data.Contacts = append(data.Contacts, addr)
			}
			return
		}
		abs := resolveURL(base, href)
		if abs != "" && !seen[abs] {
			seen[abs] = true
			data.Links = append(data.Links, abs)
		}
	})

	doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("content"); ok {
			if abs := resolveURL(base, strings.TrimSpace(src)); abs != "" {
				data.MetaImages = append(data.MetaImages, abs)
			}
		}
	})

	doc.Find(`link[rel*="icon"]`).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			if abs := resolveURL(base, strings.TrimSpace(href)); abs != "" {
				data.Icons = append(data.Icons, abs)
			}
		}
	})

	return data
}

// resolveURL resolves ref against base and returns only http(s) URLs.
func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}
