// Package gutenberg implements the Project Gutenberg source adapter. It
// enumerates catalog entries from the daily RSS listing, resolves each
// book's Dublin Core RDF metadata, and probes for direct PDF and cover
// downloads.
package gutenberg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lepinkainen/alexandria/internal/books"
	apperrors "github.com/lepinkainen/alexandria/internal/errors"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

const defaultBaseURL = "https://www.gutenberg.org"

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Adapter enumerates the Project Gutenberg catalog.
type Adapter struct {
	baseURL    string
	httpClient HTTPDoer
	limiter    *ratelimit.Limiter
	userAgent  string
	feedParser *gofeed.Parser
}

// New creates a Gutenberg adapter sharing the run's rate governor.
func New(limiter *ratelimit.Limiter, opts ...Option) *Adapter {
	adapter := &Adapter{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		feedParser: gofeed.NewParser(),
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(a *Adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithBaseURL sets a custom base URL for gutenberg.org.
func WithBaseURL(base string) Option {
	return func(a *Adapter) {
		if base != "" {
			a.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(a *Adapter) {
		a.userAgent = ua
	}
}

// Fetch produces up to maxBooks raw records from the listing feed. A failed
// per-book metadata lookup skips that entry; a failed feed fetch marks the
// whole source unavailable.
func (a *Adapter) Fetch(ctx context.Context, maxBooks int) ([]books.GutenbergRaw, error) {
	if maxBooks <= 0 {
		return nil, nil
	}

	feedURL := a.baseURL + "/cache/epub/feeds/today.rss"
	body, err := a.get(ctx, feedURL)
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(books.SourceGutenberg, err)
	}

	feed, err := a.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewSourceUnavailableError(books.SourceGutenberg,
			fmt.Errorf("failed to parse feed: %w", err))
	}

	var records []books.GutenbergRaw
	for _, item := range feed.Items {
		if len(records) >= maxBooks {
			break
		}

		bookID := bookIDFromLink(item.Link)
		if bookID == "" {
			continue
		}

		raw, err := a.bookDetails(ctx, bookID)
		if err != nil {
			slog.Warn("Skipping Gutenberg item", "id", bookID, "error", err)
			continue
		}

		records = append(records, raw)
		slog.Info("Fetched Gutenberg item",
			"count", len(records),
			"target", maxBooks,
			"title", raw.Title)
	}

	return records, nil
}

// bookIDFromLink extracts the numeric book id from a feed item link such as
// https://www.gutenberg.org/ebooks/12345.
func bookIDFromLink(link string) string {
	link = strings.TrimSuffix(strings.TrimSpace(link), "/")
	idx := strings.LastIndex(link, "/")
	if idx < 0 {
		return ""
	}
	tail := link[idx+1:]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return ""
		}
	}
	if tail == "" {
		return ""
	}
	return tail
}

// bookDetails fetches and parses the RDF metadata for one book, then probes
// for a direct PDF and cover image.
func (a *Adapter) bookDetails(ctx context.Context, bookID string) (books.GutenbergRaw, error) {
	rdfURL := fmt.Sprintf("%s/cache/epub/%s/pg%s.rdf", a.baseURL, bookID, bookID)
	body, err := a.get(ctx, rdfURL)
	if err != nil {
		return books.GutenbergRaw{}, fmt.Errorf("metadata for %s: %w", bookID, err)
	}

	doc, err := parseRDF(body)
	if err != nil {
		return books.GutenbergRaw{}, fmt.Errorf("failed to parse RDF for %s: %w", bookID, err)
	}

	raw := books.GutenbergRaw{
		ID:          bookID,
		Title:       strings.TrimSpace(doc.Ebook.Title),
		Author:      strings.TrimSpace(doc.Ebook.Creator.Agent.Name),
		Description: strings.TrimSpace(doc.Ebook.Description),
		Publisher:   strings.TrimSpace(doc.Ebook.Publisher),
		Language:    strings.TrimSpace(doc.Ebook.Language.Description.Value),
	}
	for _, subject := range doc.Ebook.Subjects {
		if value := strings.TrimSpace(subject.Description.Value); value != "" {
			raw.Subjects = append(raw.Subjects, value)
		}
	}

	// Not every book carries a PDF rendition or a cover; probe both and
	// record only what exists.
	pdfURL := fmt.Sprintf("%s/files/%s/%s-pdf.pdf", a.baseURL, bookID, bookID)
	if a.exists(ctx, pdfURL) {
		raw.PDFURL = pdfURL
	}

	coverURL := fmt.Sprintf("%s/cache/epub/%s/pg%s.cover.medium.jpg", a.baseURL, bookID, bookID)
	if a.exists(ctx, coverURL) {
		raw.CoverURL = coverURL
	}

	return raw, nil
}

// get performs a rate-limited GET and returns the body.
func (a *Adapter) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// exists performs a rate-limited HEAD probe.
func (a *Adapter) exists(ctx context.Context, rawURL string) bool {
	if err := a.limiter.Wait(ctx); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}
