// Package download retrieves the binary assets (PDFs and cover images)
// referenced by collected records. Every fetch gets exactly one attempt;
// a failed asset is logged and left unset, never aborting the record or
// the run.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lepinkainen/alexandria/internal/books"
	"github.com/lepinkainen/alexandria/internal/fileutil"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

// Subdirectories under the output directory owning each asset kind.
const (
	PDFDir   = "pdfs"
	CoverDir = "covers"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Downloader fetches record assets into the run's output directory.
type Downloader struct {
	httpClient    HTTPDoer
	limiter       *ratelimit.Limiter
	outputDir     string
	userAgent     string
	maxCoverWidth int
}

// New creates a Downloader writing under outputDir, paced by the run's
// shared rate governor.
func New(limiter *ratelimit.Limiter, outputDir string, opts ...Option) *Downloader {
	d := &Downloader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		outputDir:  outputDir,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Option is a functional option for configuring the Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(d *Downloader) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		d.userAgent = ua
	}
}

// WithMaxCoverWidth enables shrinking downloaded covers wider than the
// given pixel width. Zero disables resizing.
func WithMaxCoverWidth(width int) Option {
	return func(d *Downloader) {
		if width >= 0 {
			d.maxCoverWidth = width
		}
	}
}

// ProcessAll attempts asset downloads for every record with a remote
// reference, mutating the records in place.
func (d *Downloader) ProcessAll(ctx context.Context, records []books.Book) {
	for i := range records {
		d.Process(ctx, &records[i])
	}
}

// Process fetches the record's PDF and cover. The two attempts are
// independent: a PDF failure does not block the cover and vice versa.
func (d *Downloader) Process(ctx context.Context, book *books.Book) {
	if book.PDFURL != "" {
		path, size, err := d.fetchFile(ctx, book.PDFURL, PDFDir, assetFilename(book, ".pdf"))
		if err != nil {
			slog.Warn("PDF download failed", "title", book.Title, "url", book.PDFURL, "error", err)
		} else {
			book.LocalPDFPath = path
			book.FileSize = size
		}
	}

	if book.CoverURL != "" {
		filename := assetFilename(book, coverExtension(book.CoverURL))
		path, _, err := d.fetchFile(ctx, book.CoverURL, CoverDir, filename)
		if err != nil {
			slog.Warn("Cover download failed", "title", book.Title, "url", book.CoverURL, "error", err)
		} else {
			book.LocalCoverPath = path
			d.shrinkCover(path)
		}
	}
}

// assetFilename builds a filesystem-safe, per-source-unique filename from
// the sanitized title and the identifier.
func assetFilename(book *books.Book, ext string) string {
	title := fileutil.SanitizeFilename(book.Title)
	if title == "" {
		title = "book"
	}
	return title + "_" + fileutil.SanitizeFilename(book.Identifier) + ext
}

func coverExtension(coverURL string) string {
	lower := strings.ToLower(coverURL)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return ".png"
	case strings.HasSuffix(lower, ".jpeg"):
		return ".jpeg"
	default:
		return ".jpg"
	}
}

// fetchFile downloads one URL into subdir/filename under the output
// directory. One attempt only; on any failure nothing is left on disk and
// the returned path is empty.
func (d *Downloader) fetchFile(ctx context.Context, rawURL, subdir, filename string) (string, int64, error) {
	dir := filepath.Join(d.outputDir, subdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create %s directory: %w", subdir, err)
	}
	destination := filepath.Join(dir, filename)

	if err := d.limiter.Wait(ctx); err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	file, err := os.Create(destination)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		err = fmt.Errorf("empty body from %s", rawURL)
	}
	if err != nil {
		_ = os.Remove(destination)
		return "", 0, err
	}

	slog.Debug("Downloaded asset", "path", destination, "bytes", written)
	return destination, written, nil
}

// shrinkCover resizes a downloaded cover in place when it exceeds the
// configured max width. The original file is kept if it cannot be decoded.
func (d *Downloader) shrinkCover(path string) {
	if d.maxCoverWidth <= 0 {
		return
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		slog.Warn("Cover resize skipped, could not decode image", "path", path, "error", err)
		return
	}

	if img.Bounds().Dx() <= d.maxCoverWidth {
		return
	}

	img = imaging.Resize(img, d.maxCoverWidth, 0, imaging.Lanczos)
	if err := imaging.Save(img, path, imaging.JPEGQuality(85)); err != nil {
		slog.Warn("Cover resize failed", "path", path, "error", err)
	}
}
