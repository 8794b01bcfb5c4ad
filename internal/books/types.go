package books

import "strconv"

// Source tags identifying where a record came from.
const (
	SourceArchive   = "archive.org"
	SourceGutenberg = "gutenberg.org"
)

// LanguageUnknown marks records whose source exposed no language metadata.
// It is deliberately distinct from "en" and must never be coerced to it.
const LanguageUnknown = "unknown"

// Book is the canonical record shape shared by all sources. Optional text
// fields default to the empty string, numeric fields to zero; no field is
// ever absent.
type Book struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Publisher      string `json:"publisher"`
	Language       string `json:"language"`
	Subjects       string `json:"subjects"`
	Categories     string `json:"categories"`
	ISBN           string `json:"isbn"`
	Pages          string `json:"pages"`
	Source         string `json:"source"`
	Identifier     string `json:"identifier"`
	DownloadCount  int    `json:"download_count"`
	FileSize       int64  `json:"file_size"`
	PDFURL         string `json:"pdf_url"`
	CoverURL       string `json:"cover_url"`
	LocalPDFPath   string `json:"local_pdf_path"`
	LocalCoverPath string `json:"local_cover_path"`
	AddedDate      string `json:"added_date"`
}

// CSVColumns is the fixed header row of the collection CSV. CSVRow emits
// cells in exactly this order.
var CSVColumns = []string{
	"title", "author", "description", "date", "publisher", "language",
	"subjects", "categories", "isbn", "pages", "source", "identifier",
	"download_count", "file_size", "pdf_url", "cover_url",
	"local_pdf_path", "local_cover_path", "added_date",
}

// CSVRow returns the record's cells in CSVColumns order.
func (b Book) CSVRow() []string {
	return []string{
		b.Title,
		b.Author,
		b.Description,
		b.Date,
		b.Publisher,
		b.Language,
		b.Subjects,
		b.Categories,
		b.ISBN,
		b.Pages,
		b.Source,
		b.Identifier,
		strconv.Itoa(b.DownloadCount),
		strconv.FormatInt(b.FileSize, 10),
		b.PDFURL,
		b.CoverURL,
		b.LocalPDFPath,
		b.LocalCoverPath,
		b.AddedDate,
	}
}

// Map converts a record to a column->value map for database insertion.
func (b Book) Map() map[string]any {
	return map[string]any{
		"title":            b.Title,
		"author":           b.Author,
		"description":      b.Description,
		"date":             b.Date,
		"publisher":        b.Publisher,
		"language":         b.Language,
		"subjects":         b.Subjects,
		"categories":       b.Categories,
		"isbn":             b.ISBN,
		"pages":            b.Pages,
		"source":           b.Source,
		"identifier":       b.Identifier,
		"download_count":   b.DownloadCount,
		"file_size":        b.FileSize,
		"pdf_url":          b.PDFURL,
		"cover_url":        b.CoverURL,
		"local_pdf_path":   b.LocalPDFPath,
		"local_cover_path": b.LocalCoverPath,
		"added_date":       b.AddedDate,
	}
}
