package feed

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"apicatalog/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error

	lastReq *http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestRSSFetch(t *testing.T) {
	xml := loadFixture(t, "testdata/sample.xml")
	source := model.DiscoverySource{Name: "Dev Tools Weekly", URL: "https://devtools.example.com/rss", Kind: model.KindRSS}

	tests := []struct {
		name      string
		transport *mockTransport
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantItems: 5,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRSSClient(tt.transport)
			items, err := c.Fetch(context.Background(), source)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantItems, len(items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
			if len(items) > 0 {
				first := items[0]
				if diff := cmp.Diff("New API: SuperData", first.Title); diff != "" {
					t.Errorf("title mismatch (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff("Dev Tools Weekly", first.Source); diff != "" {
					t.Errorf("source mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestGitHubFetch(t *testing.T) {
	body := loadFixture(t, "testdata/github_search.json")
	source := model.DiscoverySource{Name: "GitHub Trending", URL: "https://api.github.com", Kind: model.KindGitHub}

	transport := &mockTransport{body: body, statusCode: 200}
	c := NewGitHubClient(transport, "test-token")

	items, err := c.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff(3, len(items)); diff != "" {
		t.Fatalf("item count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("superdata/superdata-go", items[0].Title); diff != "" {
		t.Errorf("title mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("https://github.com/superdata/superdata-go", items[0].Link); diff != "" {
		t.Errorf("link mismatch (-want +got):\n%s", diff)
	}

	// Repository without a description still yields usable content.
	if got := items[2].Content; got != "No description. Language: Python" {
		t.Errorf("fallback content mismatch: %q", got)
	}

	req := transport.lastReq
	if req == nil {
		t.Fatal("no request captured")
	}
	q := req.URL.Query().Get("q")
	for _, part := range []string{"topic:api", "created:>", "stars:>50"} {
		if !strings.Contains(q, part) {
			t.Errorf("query %q missing %q", q, part)
		}
	}
	if got := req.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("authorization header mismatch: %q", got)
	}
	if diff := cmp.Diff("stars", req.URL.Query().Get("sort")); diff != "" {
		t.Errorf("sort mismatch (-want +got):\n%s", diff)
	}
}

func TestGitHubFetchErrors(t *testing.T) {
	source := model.DiscoverySource{Name: "GitHub Trending", URL: "https://api.github.com", Kind: model.KindGitHub}

	tests := []struct {
		name      string
		transport *mockTransport
	}{
		{name: "rate limited", transport: &mockTransport{body: "{}", statusCode: 403}},
		{name: "network error", transport: &mockTransport{err: io.ErrUnexpectedEOF}},
		{name: "garbage body", transport: &mockTransport{body: "<html>", statusCode: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGitHubClient(tt.transport, "")
			if _, err := c.Fetch(context.Background(), source); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
