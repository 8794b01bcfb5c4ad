package books

import (
	"strings"
	"time"
)

// now is swappable in tests.
var now = time.Now

// maxCategories limits how many subject tags feed the categories field.
const maxCategories = 5

// ArchiveRaw holds the fields an Archive.org metadata document yields
// before normalization.
type ArchiveRaw struct {
	Identifier    string
	Title         string
	Author        string
	Description   string
	Date          string
	Publisher     string
	Language      string
	Subjects      []string
	ISBN          string
	Pages         string
	DownloadCount int
	PDFURL        string
	CoverURL      string
}

// GutenbergRaw holds the fields a Gutenberg RDF document yields before
// normalization.
type GutenbergRaw struct {
	ID          string
	Title       string
	Author      string
	Description string
	Publisher   string
	Language    string
	Subjects    []string
	PDFURL      string
	CoverURL    string
}

// NormalizeArchive maps an Archive.org raw record onto the canonical shape.
// Missing optional fields become empty strings; AddedDate is stamped here.
func NormalizeArchive(raw ArchiveRaw) Book {
	return Book{
		Title:         raw.Title,
		Author:        raw.Author,
		Description:   raw.Description,
		Date:          raw.Date,
		Publisher:     raw.Publisher,
		Language:      defaultString(raw.Language, "en"),
		Subjects:      joinTags(raw.Subjects, 0),
		Categories:    joinTags(raw.Subjects, maxCategories),
		ISBN:          raw.ISBN,
		Pages:         raw.Pages,
		Source:        SourceArchive,
		Identifier:    raw.Identifier,
		DownloadCount: max(raw.DownloadCount, 0),
		PDFURL:        raw.PDFURL,
		CoverURL:      raw.CoverURL,
		AddedDate:     now().Format(time.RFC3339),
	}
}

// NormalizeGutenberg maps a Gutenberg raw record onto the canonical shape.
// The publisher defaults to Project Gutenberg and the language to the
// explicit unknown marker when the feed exposes none.
func NormalizeGutenberg(raw GutenbergRaw) Book {
	return Book{
		Title:       raw.Title,
		Author:      raw.Author,
		Description: raw.Description,
		Publisher:   defaultString(raw.Publisher, "Project Gutenberg"),
		Language:    defaultString(raw.Language, LanguageUnknown),
		Subjects:    joinTags(raw.Subjects, 0),
		Categories:  joinTags(raw.Subjects, maxCategories),
		Source:      SourceGutenberg,
		Identifier:  raw.ID,
		PDFURL:      raw.PDFURL,
		CoverURL:    raw.CoverURL,
		AddedDate:   now().Format(time.RFC3339),
	}
}

// Deduplicate drops records whose (source, identifier) pair was already
// seen, keeping the first occurrence. Order is preserved.
func Deduplicate(records []Book) []Book {
	seen := make(map[string]bool, len(records))
	result := make([]Book, 0, len(records))
	for _, rec := range records {
		key := rec.Source + "\x00" + rec.Identifier
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, rec)
	}
	return result
}

// joinTags comma-joins non-empty tags, optionally capped to limit entries.
func joinTags(tags []string, limit int) string {
	var kept []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		kept = append(kept, tag)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return strings.Join(kept, ", ")
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
