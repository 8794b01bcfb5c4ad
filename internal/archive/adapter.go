// Package archive implements the Archive.org source adapter. It translates
// a target count into paged advancedsearch queries scoped to text items,
// then fetches the full metadata document for every hit to resolve
// description, subjects and downloadable files.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/alexandria/internal/books"
	apperrors "github.com/lepinkainen/alexandria/internal/errors"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

const (
	defaultBaseURL  = "https://archive.org"
	defaultPageSize = 100

	// searchQuery scopes results to free text-like items carrying PDFs.
	searchQuery = "collection:(opensource) OR mediatype:(texts) AND format:(pdf)"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Adapter queries the Archive.org catalog.
type Adapter struct {
	baseURL    string
	httpClient HTTPDoer
	limiter    *ratelimit.Limiter
	userAgent  string
	pageSize   int
}

// New creates an Archive.org adapter. The limiter is the run's shared rate
// governor; every search, metadata and probe request waits on it first.
func New(limiter *ratelimit.Limiter, opts ...Option) *Adapter {
	adapter := &Adapter{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		pageSize:   defaultPageSize,
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

// WithBaseURL sets a custom base URL for the Archive.org API.
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

// WithPageSize sets the search page size (bounded at the API's 100 max).
func WithPageSize(size int) Option {
	return func(a *Adapter) {
		if size > 0 && size <= defaultPageSize {
			a.pageSize = size
		}
	}
}

// Fetch produces up to maxBooks raw records, skipping identifiers already in
// existing. Languages, when non-empty, are pushed into the search query.
// A per-item metadata failure skips that item and continues the page; a
// transport failure before any page was read marks the whole source
// unavailable.
func (a *Adapter) Fetch(ctx context.Context, maxBooks int, languages []string, existing map[string]bool) ([]books.ArchiveRaw, error) {
	if maxBooks <= 0 {
		return nil, nil
	}

	var records []books.ArchiveRaw
	seen := make(map[string]bool)
	page := 1

	for len(records) < maxBooks {
		docs, err := a.searchPage(ctx, page, languages)
		if err != nil {
			if page == 1 && len(records) == 0 {
				return nil, apperrors.NewSourceUnavailableError(books.SourceArchive, err)
			}
			slog.Error("Archive.org search page failed, stopping", "page", page, "error", err)
			break
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			if len(records) >= maxBooks {
				break
			}
			if doc.Identifier == "" || seen[doc.Identifier] {
				continue
			}
			if existing != nil && existing[doc.Identifier] {
				continue
			}

			raw, err := a.itemDetails(ctx, doc.Identifier)
			if err != nil {
				slog.Warn("Skipping Archive.org item", "identifier", doc.Identifier, "error", err)
				continue
			}

			records = append(records, raw)
			seen[doc.Identifier] = true
			slog.Info("Fetched Archive.org item",
				"count", len(records),
				"target", maxBooks,
				"title", raw.Title)
		}

		// Fewer docs than a full page means the source is exhausted.
		if len(docs) < a.pageSize {
			break
		}
		page++
	}

	return records, nil
}

// searchPage runs one paged advancedsearch query.
func (a *Adapter) searchPage(ctx context.Context, page int, languages []string) ([]searchDoc, error) {
	query := searchQuery
	if len(languages) > 0 {
		query += fmt.Sprintf(" AND language:(%s)", strings.Join(languages, " OR "))
	}

	params := url.Values{}
	params.Set("q", query)
	for _, field := range []string{"identifier", "title", "creator", "date", "download_count"} {
		params.Add("fl[]", field)
	}
	params.Set("sort[]", "downloads desc")
	params.Set("rows", strconv.Itoa(a.pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("output", "json")

	searchURL := a.baseURL + "/advancedsearch.php?" + params.Encode()

	var result searchResponse
	if err := a.getJSON(ctx, searchURL, &result); err != nil {
		return nil, fmt.Errorf("search page %d: %w", page, err)
	}

	return result.Response.Docs, nil
}

// itemDetails fetches the full metadata document for one identifier and
// selects its PDF and cover candidates.
func (a *Adapter) itemDetails(ctx context.Context, identifier string) (books.ArchiveRaw, error) {
	var meta metadataResponse
	metadataURL := a.baseURL + "/metadata/" + url.PathEscape(identifier)
	if err := a.getJSON(ctx, metadataURL, &meta); err != nil {
		return books.ArchiveRaw{}, fmt.Errorf("metadata for %s: %w", identifier, err)
	}

	if meta.Metadata.Title.First() == "" {
		return books.ArchiveRaw{}, fmt.Errorf("item %s has no title", identifier)
	}

	pdfName, coverName := selectFiles(meta.Files)

	raw := books.ArchiveRaw{
		Identifier:    identifier,
		Title:         meta.Metadata.Title.First(),
		Author:        meta.Metadata.Creator.First(),
		Description:   meta.Metadata.Description.First(),
		Date:          meta.Metadata.Date.First(),
		Publisher:     meta.Metadata.Publisher.First(),
		Language:      meta.Metadata.Language.First(),
		Subjects:      meta.Metadata.Subject.List(),
		ISBN:          meta.Metadata.ISBN.First(),
		Pages:         meta.Metadata.Pages.First(),
		DownloadCount: meta.Metadata.DownloadCount.Int(),
	}
	if pdfName != "" {
		raw.PDFURL = a.downloadURL(identifier, pdfName)
	}
	if coverName != "" {
		raw.CoverURL = a.downloadURL(identifier, coverName)
	}

	return raw, nil
}

// selectFiles picks the PDF and cover candidates from an item's file
// listing. First matching file wins; exact extension matches only.
func selectFiles(files []fileEntry) (pdfName, coverName string) {
	for _, file := range files {
		name := strings.ToLower(file.Name)

		if pdfName == "" && strings.HasSuffix(name, ".pdf") {
			if strings.Contains(name, "text") || !isCoverLike(name) {
				pdfName = file.Name
			}
		}

		if coverName == "" && isCoverLike(name) && hasImageExt(name) {
			coverName = file.Name
		}
	}
	return pdfName, coverName
}

func isCoverLike(name string) bool {
	return strings.Contains(name, "cover") || strings.Contains(name, "thumb")
}

func hasImageExt(name string) bool {
	return strings.HasSuffix(name, ".jpg") ||
		strings.HasSuffix(name, ".jpeg") ||
		strings.HasSuffix(name, ".png")
}

func (a *Adapter) downloadURL(identifier, name string) string {
	return a.baseURL + "/download/" + url.PathEscape(identifier) + "/" + url.PathEscape(name)
}

// getJSON performs a rate-limited GET and decodes the JSON body into out.
func (a *Adapter) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
