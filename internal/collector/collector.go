// Package collector drives one end-to-end collection run: both source
// adapters in order, optional asset downloads, the CSV/zip write, and the
// final statistics. Everything runs sequentially on one goroutine so the
// shared rate governor is the only pacing authority.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lepinkainen/alexandria/internal/archive"
	"github.com/lepinkainen/alexandria/internal/books"
	"github.com/lepinkainen/alexandria/internal/datastore"
	"github.com/lepinkainen/alexandria/internal/download"
	"github.com/lepinkainen/alexandria/internal/export"
	"github.com/lepinkainen/alexandria/internal/fileutil"
	"github.com/lepinkainen/alexandria/internal/gutenberg"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
	"github.com/lepinkainen/alexandria/internal/stats"
)

// SummaryFilename is the persisted copy of the run report.
const SummaryFilename = "import_summary.json"

// Options configures one collection run.
type Options struct {
	TargetCount     int
	Languages       map[string]bool
	DownloadAssets  bool
	OutputDir       string
	CreateArchive   bool
	MaxCoverWidth   int
	RequestInterval time.Duration
	UserAgent       string
	SQLitePath      string

	// Test seams; production runs leave these nil and get real adapters
	// built over the shared limiter.
	ArchiveSource   ArchiveSource
	GutenbergSource GutenbergSource
	Downloader      AssetDownloader
}

// ArchiveSource is the Archive.org adapter contract the collector needs.
type ArchiveSource interface {
	Fetch(ctx context.Context, maxBooks int, languages []string, existing map[string]bool) ([]books.ArchiveRaw, error)
}

// GutenbergSource is the Gutenberg adapter contract the collector needs.
type GutenbergSource interface {
	Fetch(ctx context.Context, maxBooks int) ([]books.GutenbergRaw, error)
}

// AssetDownloader is the downloader contract the collector needs.
type AssetDownloader interface {
	ProcessAll(ctx context.Context, records []books.Book)
}

// Summary is the run report returned to the CLI and persisted alongside
// the collection.
type Summary struct {
	ImportTimestamp       string         `json:"import_timestamp"`
	TargetBooks           int            `json:"target_books"`
	ScrapedBooks          int            `json:"scraped_books"`
	BooksWithPDFs         int            `json:"books_with_pdfs"`
	BooksWithCovers       int            `json:"books_with_covers"`
	BooksWithDescriptions int            `json:"books_with_descriptions"`
	BooksWithCategories   int            `json:"books_with_categories"`
	CSVDatabase           string         `json:"csv_database"`
	ZipArchive            string         `json:"zip_archive,omitempty"`
	ElapsedSeconds        int            `json:"elapsed_seconds"`
	LanguageFilter        []string       `json:"language_filter"`
	DownloadFiles         bool           `json:"download_files"`
	Sources               map[string]int `json:"sources"`
}

// Run executes one collection. It always completes with whatever records it
// managed to collect; only an unwritable output directory is fatal.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	if opts.TargetCount <= 0 {
		return nil, fmt.Errorf("target count must be positive, got %d", opts.TargetCount)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("output directory not writable: %w", err)
	}

	interval := opts.RequestInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	limiter := ratelimit.New("catalogs", interval)

	archiveSource := opts.ArchiveSource
	if archiveSource == nil {
		archiveSource = archive.New(limiter, archive.WithUserAgent(opts.UserAgent))
	}
	gutenbergSource := opts.GutenbergSource
	if gutenbergSource == nil {
		gutenbergSource = gutenberg.New(limiter, gutenberg.WithUserAgent(opts.UserAgent))
	}

	languages := sortedLanguages(opts.Languages)
	records := collectRecords(ctx, opts, archiveSource, gutenbergSource, languages)
	records = books.Deduplicate(records)

	if opts.DownloadAssets && len(records) > 0 {
		downloader := opts.Downloader
		if downloader == nil {
			downloader = download.New(limiter, opts.OutputDir,
				download.WithUserAgent(opts.UserAgent),
				download.WithMaxCoverWidth(opts.MaxCoverWidth))
		}
		slog.Info("Starting asset downloads", "records", len(records))
		downloader.ProcessAll(ctx, records)
	}

	csvPath, err := export.WriteCSV(records, opts.OutputDir)
	if err != nil {
		return nil, err
	}

	var zipPath string
	if opts.CreateArchive {
		zipPath, err = export.WriteArchive(opts.OutputDir)
		if err != nil {
			return nil, err
		}
	}

	statistics := stats.Aggregate(records)
	if _, err := stats.Write(statistics, opts.OutputDir); err != nil {
		slog.Error("Failed to persist statistics", "error", err)
	}

	if opts.SQLitePath != "" {
		if err := exportSQLite(records, opts.SQLitePath); err != nil {
			slog.Error("Failed to export collection to SQLite", "error", err)
		}
	}

	summary := buildSummary(records, opts, languages, csvPath, zipPath, time.Since(start))
	if err := fileutil.WriteJSONFile(summary, filepath.Join(opts.OutputDir, SummaryFilename)); err != nil {
		slog.Error("Failed to persist run summary", "error", err)
	}

	slog.Info("Collection run complete",
		"target", summary.TargetBooks,
		"scraped", summary.ScrapedBooks,
		"with_pdfs", summary.BooksWithPDFs,
		"with_covers", summary.BooksWithCovers,
		"elapsed", time.Since(start).Round(time.Second))

	return summary, nil
}

// collectRecords runs the adapters in order: Archive.org first, Gutenberg
// for the remainder, then an Archive.org top-up excluding identifiers the
// first pass already produced. A failed source contributes zero records and
// never aborts the run.
func collectRecords(ctx context.Context, opts Options, archiveSource ArchiveSource, gutenbergSource GutenbergSource, languages []string) []books.Book {
	var records []books.Book
	seenArchiveIDs := make(map[string]bool)

	appendArchive := func(raws []books.ArchiveRaw) {
		for _, raw := range raws {
			records = append(records, books.NormalizeArchive(raw))
			seenArchiveIDs[raw.Identifier] = true
		}
	}

	// First pass: Archive.org gets roughly half the target, floored at 500
	// so big runs front-load the richer source.
	primary := min(max(opts.TargetCount/2, 500), opts.TargetCount)
	raws, err := archiveSource.Fetch(ctx, primary, languages, seenArchiveIDs)
	if err != nil {
		slog.Error("Archive.org source failed", "error", err)
	}
	appendArchive(raws)
	slog.Info("Archive.org pass done", "collected", len(records), "target", opts.TargetCount)

	if remaining := opts.TargetCount - len(records); remaining > 0 {
		graws, err := gutenbergSource.Fetch(ctx, remaining)
		if err != nil {
			slog.Error("Gutenberg source failed", "error", err)
		}
		for _, raw := range graws {
			record := books.NormalizeGutenberg(raw)
			if !languageAllowed(record.Language, opts.Languages) {
				slog.Debug("Dropping Gutenberg record outside language filter",
					"id", record.Identifier, "language", record.Language)
				continue
			}
			records = append(records, record)
		}
		slog.Info("Gutenberg pass done", "collected", len(records), "target", opts.TargetCount)
	}

	if remaining := opts.TargetCount - len(records); remaining > 0 {
		slog.Info("Topping up from Archive.org", "remaining", remaining)
		raws, err := archiveSource.Fetch(ctx, remaining, languages, seenArchiveIDs)
		if err != nil {
			slog.Error("Archive.org top-up failed", "error", err)
		}
		appendArchive(raws)
	}

	if len(records) < opts.TargetCount {
		slog.Warn("Sources exhausted before reaching target",
			"collected", len(records), "target", opts.TargetCount)
	}

	return records
}

// languageAllowed applies the run's language filter to sources that cannot
// filter server-side. Records tagged with the unknown marker cannot be
// proven to match and are dropped when a filter is active.
func languageAllowed(language string, filter map[string]bool) bool {
	if len(filter) == 0 {
		return true
	}
	return filter[language]
}

func sortedLanguages(filter map[string]bool) []string {
	if len(filter) == 0 {
		return nil
	}
	languages := make([]string, 0, len(filter))
	for lang := range filter {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

func exportSQLite(records []books.Book, dbPath string) error {
	store := datastore.NewSQLiteStore(dbPath)
	if err := store.Connect(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.InsertBooks(records); err != nil {
		return err
	}
	slog.Info("Exported collection to SQLite", "path", dbPath, "records", len(records))
	return nil
}

func buildSummary(records []books.Book, opts Options, languages []string, csvPath, zipPath string, elapsed time.Duration) *Summary {
	summary := &Summary{
		ImportTimestamp: time.Now().UTC().Format(time.RFC3339),
		TargetBooks:     opts.TargetCount,
		ScrapedBooks:    len(records),
		CSVDatabase:     csvPath,
		ZipArchive:      zipPath,
		ElapsedSeconds:  int(elapsed.Seconds()),
		LanguageFilter:  languages,
		DownloadFiles:   opts.DownloadAssets,
		Sources:         make(map[string]int),
	}
	if len(summary.LanguageFilter) == 0 {
		summary.LanguageFilter = []string{"all"}
	}

	for _, record := range records {
		summary.Sources[record.Source]++
		if record.LocalPDFPath != "" {
			summary.BooksWithPDFs++
		}
		if record.LocalCoverPath != "" {
			summary.BooksWithCovers++
		}
		if record.Description != "" {
			summary.BooksWithDescriptions++
		}
		if record.Categories != "" {
			summary.BooksWithCategories++
		}
	}

	return summary
}
