// Package crawler implements the re-crawl pipeline: a browser-backed fetch
// engine, heuristic content parsing, stalest-first scheduling, and the
// bounded-concurrency batch runner that ties them together.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Fetch failure kinds. All of them surface on CrawlResult.Err, never as a
// panic or a batch-level error.
var (
	ErrTimeout    = errors.New("page load timed out")
	ErrNavigation = errors.New("navigation failed")
	ErrBadStatus  = errors.New("non-success http status")
)

// CrawlResult carries one fetched page between the engine and the parser.
type CrawlResult struct {
	URL        string
	FinalURL   string
	Title      string
	Content    string // visible text
	HTML       string
	Links      []string
	MetaImages []string
	Icons      []string
	Contacts   []string
	Err        error
}

// Engine fetches single pages over a shared browser session. Init and Close
// bracket an entire batch so session startup cost is amortized.
type Engine interface {
	Init(ctx context.Context) error
	Crawl(ctx context.Context, url string) *CrawlResult
	Close()
}

// ChromeEngine is the chromedp-backed Engine. One headless browser is
// launched on Init; each Crawl opens a fresh tab context, so concurrent
// crawls are safe.
type ChromeEngine struct {
	timeout time.Duration

	mu          sync.Mutex
	browserCtx  context.Context
	cancelFns   []context.CancelFunc
	initialized bool
}

// NewChromeEngine creates an engine with the given per-page load timeout.
func NewChromeEngine(timeout time.Duration) *ChromeEngine {
	return &ChromeEngine{timeout: timeout}
}

// Init launches the shared headless browser. It must be called once before
// the first Crawl; failure here is fatal for the whole batch.
func (e *ChromeEngine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("APICatalogBot/1.0"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser now so a broken Chrome install fails the batch
	// instead of the first page.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("launch browser: %w", err)
	}

	e.browserCtx = browserCtx
	e.cancelFns = []context.CancelFunc{cancelBrowser, cancelAlloc}
	e.initialized = true
	return nil
}

// Close tears down the shared browser session. Safe to call more than once.
func (e *ChromeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.cancelFns {
		cancel()
	}
	e.cancelFns = nil
	e.initialized = false
}

// Crawl fetches a single page in a new tab. Timeouts, navigation failures,
// and non-success statuses populate the Err field on the result.
func (e *ChromeEngine) Crawl(ctx context.Context, url string) *CrawlResult {
	result := &CrawlResult{URL: url, FinalURL: url}

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		result.Err = fmt.Errorf("%w: engine not initialized", ErrNavigation)
		return result
	}
	browserCtx := e.browserCtx
	e.mu.Unlock()

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, e.timeout)
	defer cancelTimeout()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		result.Err = classifyNavError(err, ctx)
		return result
	}
	if resp != nil && resp.Status >= 400 {
		result.Err = fmt.Errorf("%w: %d", ErrBadStatus, resp.Status)
		return result
	}

	var title, content, html, finalURL string
	err = chromedp.Run(tabCtx,
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &content),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		result.Err = classifyNavError(err, ctx)
		return result
	}

	result.Title = title
	result.Content = content
	result.HTML = html
	if finalURL != "" {
		result.FinalURL = finalURL
	}

	page := extractPage(html, result.FinalURL)
	result.Links = page.Links
	result.MetaImages = page.MetaImages
	result.Icons = page.Icons
	result.Contacts = page.Contacts
	return result
}

func classifyNavError(err error, parent context.Context) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%w: %v", ErrNavigation, parent.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after deadline: %v", ErrTimeout, err)
	case strings.Contains(err.Error(), "net::ERR_NAME_NOT_RESOLVED"):
		return fmt.Errorf("%w: dns: %v", ErrNavigation, err)
	default:
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
}
