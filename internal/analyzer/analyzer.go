// Package analyzer decides whether a piece of text describes a usable API
// product, using a generative model with structured JSON output.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-1.5-flash"

	// maxResponseBytes bounds how much of a model response is read.
	maxResponseBytes = 1 << 20
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Candidate is the structured result of a successful extraction.
type Candidate struct {
	Name        string
	Description string
	URL         string
	Category    string
	Confidence  float64
}

// Analyzer issues one structured-output inference call per item. It performs
// no persistence and no deduplication.
type Analyzer struct {
	client  HTTPClient
	apiKey  string
	baseURL string
	model   string
}

// New creates an Analyzer. apiKey must be non-empty.
func New(client HTTPClient, apiKey string) *Analyzer {
	return &Analyzer{
		client:  client,
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
	}
}

// NewWithBaseURL creates an Analyzer against a custom endpoint (useful for testing).
func NewWithBaseURL(client HTTPClient, apiKey, baseURL string) *Analyzer {
	a := New(client, apiKey)
	a.baseURL = baseURL
	return a
}

const promptTemplate = `Analyze the following article title and content to determine if it introduces or discusses a new API service or developer tool that provides an API.

Title: %s
Content: %s

If it IS about a new API/Developer Tool, return JSON:
{"is_api": true, "name": "Name of the API/Tool", "description": "Brief description of what it does (max 200 chars)", "url": "URL of the API documentation or main site, otherwise null", "category": "Best fitting category (e.g. AI, DevTools, Finance, Social)", "confidence": 0.9}

The confidence field is how sure you are this is an API product, between 0 and 1.

If it is NOT about a new API/Tool, return:
{"is_api": false}

Return ONLY the JSON.`

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type extraction struct {
	IsAPI       bool    `json:"is_api"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URL         string  `json:"url"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

// Analyze runs one inference call over the item's title and content. It
// returns (nil, nil) when the model judges the item irrelevant, declines to
// name a product, or ignores the JSON output instruction, and an error on
// transport or response-decoding failure. Callers treat both the same way:
// no candidate. There are no retries here.
func (a *Analyzer) Analyze(ctx context.Context, itemContent, title string) (*Candidate, error) {
	prompt := fmt.Sprintf(promptTemplate, title, itemContent)

	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}

	var ext extraction
	if err := json.Unmarshal([]byte(gen.Candidates[0].Content.Parts[0].Text), &ext); err != nil {
		// The model ignored the JSON instruction; treat as a decline.
		return nil, nil
	}
	if !ext.IsAPI || ext.Name == "" {
		return nil, nil
	}

	return &Candidate{
		Name:        ext.Name,
		Description: ext.Description,
		URL:         ext.URL,
		Category:    ext.Category,
		Confidence:  clamp01(ext.Confidence),
	}, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
