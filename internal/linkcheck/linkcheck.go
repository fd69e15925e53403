// Package linkcheck verifies stored documentation URLs without running the
// full crawl pipeline: a plain HTTP probe classifies each sampled entry as
// unchanged, redirected, content-changed, or erroring.
package linkcheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"apicatalog/internal/metrics"
	"apicatalog/internal/model"
	"apicatalog/internal/storage"
)

// Status classifies one checked entry.
type Status string

// Link check outcomes.
const (
	StatusOK          Status = "ok"
	StatusRedirected  Status = "redirected"
	StatusHashChanged Status = "hash_changed"
	StatusError       Status = "error"
)

// Result is the per-entry outcome of a link-check run.
type Result struct {
	ApiID       int64
	Name        string
	Status      Status
	PreviousURL string
	NewURL      string
	NewHash     string
	Error       string
}

// Options controls one link-check run.
type Options struct {
	// Limit bounds the sample size; 0 checks every non-INACTIVE entry.
	Limit int
}

// HTTPClient is the interface for performing HTTP requests. The client must
// follow redirects so the final URL can be inspected on the response.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxBodyBytes bounds how much of a page is read for hashing.
const maxBodyBytes = 5 * 1024 * 1024

// Checker runs the verification pass.
type Checker struct {
	store   storage.Storage
	client  HTTPClient
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Checker.
func New(store storage.Storage, client HTTPClient, timeout time.Duration, log *slog.Logger) *Checker {
	return &Checker{store: store, client: client, timeout: timeout, log: log}
}

// Run checks a stalest-first sample of stored entries and writes the
// resulting status, verification flag, final URL, and content hash back.
// Individual failures mark that entry BROKEN and the run continues.
func (c *Checker) Run(ctx context.Context, opts Options) ([]Result, error) {
	entries, err := c.store.ListForLinkCheck(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}

	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res := c.checkOne(ctx, entry)
		metrics.LinkCheckTotal.WithLabelValues(string(res.Status)).Inc()
		results = append(results, res)
	}

	c.log.Info("link check finished", "checked", len(results))
	return results, nil
}

func (c *Checker) checkOne(ctx context.Context, entry model.Api) Result {
	res := Result{ApiID: entry.ID, Name: entry.Name, PreviousURL: entry.DocsURL, Status: StatusOK}
	start := time.Now()

	body, finalURL, err := c.fetch(ctx, entry.DocsURL)
	durationMS := int(time.Since(start).Milliseconds())
	if err != nil {
		c.log.Warn("link check failed", "id", entry.ID, "name", entry.Name, "error", err)
		res.Status = StatusError
		res.Error = err.Error()
		// PENDING entries stay PENDING: only admin review moves them on.
		next := model.StatusBroken
		if entry.Status == model.StatusPending {
			next = model.StatusPending
		}
		if uerr := c.store.UpdateApiStatus(ctx, entry.ID, next, durationMS); uerr != nil {
			c.log.Error("mark entry broken", "id", entry.ID, "error", uerr)
		}
		return res
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	res.NewHash = hash
	res.NewURL = finalURL

	if finalURL != "" && finalURL != entry.DocsURL {
		res.Status = StatusRedirected
		entry.DocsURL = finalURL
	}
	if entry.LastHash != nil && *entry.LastHash != hash {
		// Redirects also change content; the hash change is the stronger signal.
		res.Status = StatusHashChanged
		if err := c.store.AppendPricingHistory(ctx, &model.PricingHistory{
			ApiID:        entry.ID,
			PreviousHash: entry.LastHash,
			NewHash:      hash,
			URL:          entry.DocsURL,
		}); err != nil {
			c.log.Error("append pricing history", "id", entry.ID, "error", err)
		}
	}

	entry.LastHash = &hash
	if entry.Status != model.StatusPending {
		entry.Status = model.StatusActive
	}
	entry.Verified = true
	entry.ResponseTimeMS = &durationMS
	now := time.Now().UTC()
	entry.LastCheckedAt = &now

	if err := c.store.UpdateApi(ctx, &entry); err != nil {
		c.log.Error("update entry after link check", "id", entry.ID, "error", err)
	}
	return res
}

// fetch performs the probe and returns the response body and the final URL
// after redirects. Non-success statuses are errors.
func (c *Checker) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "APICatalogBot/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		return nil, finalURL, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, finalURL, fmt.Errorf("read body: %w", err)
	}
	return body, finalURL, nil
}
