package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"apicatalog/internal/model"
)

// Repository search parameters: only repositories created within the lookback
// window and above the popularity floor are considered, most-starred first,
// capped to one small page to bound cost per run.
const (
	githubLookbackDays = 7
	githubMinStars     = 50
	githubPageSize     = 10
)

// GitHubClient queries the code-host search endpoint for recently created,
// API-related repositories. The source URL is used as the API base so tests
// can point it at a local server.
type GitHubClient struct {
	client HTTPClient
	token  string
}

// NewGitHubClient creates a GitHubClient. token may be empty for
// unauthenticated (rate-limited) access.
func NewGitHubClient(client HTTPClient, token string) *GitHubClient {
	return &GitHubClient{client: client, token: token}
}

type githubSearchResponse struct {
	Items []githubRepo `json:"items"`
}

type githubRepo struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Language    string `json:"language"`
	CreatedAt   string `json:"created_at"`
}

// Fetch searches for trending API-topic repositories.
func (c *GitHubClient) Fetch(ctx context.Context, source model.DiscoverySource) ([]Item, error) {
	since := time.Now().UTC().AddDate(0, 0, -githubLookbackDays).Format("2006-01-02")
	query := fmt.Sprintf("topic:api created:>%s stars:>%d", since, githubMinStars)

	endpoint := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&order=desc&per_page=%d",
		source.URL, url.QueryEscape(query), githubPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var search githubSearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	items := make([]Item, 0, len(search.Items))
	for _, repo := range search.Items {
		content := fmt.Sprintf("No description. Language: %s", repo.Language)
		if repo.Description != "" {
			content = fmt.Sprintf("%s\n\nTop Language: %s", repo.Description, repo.Language)
		}
		published := time.Now().UTC()
		if t, err := time.Parse(time.RFC3339, repo.CreatedAt); err == nil {
			published = t
		}
		items = append(items, Item{
			Title:     repo.FullName,
			Link:      repo.HTMLURL,
			Content:   content,
			Published: published,
			Source:    source.Name,
		})
	}
	return items, nil
}
