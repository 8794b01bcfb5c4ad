// Package query implements the post-hoc filter utility over an already
// written collection CSV. It is a pure read/filter layer: nothing here
// touches the network or mutates the collection.
package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/lepinkainen/alexandria/internal/books"
)

// Load reads a collection CSV back into records. Columns are resolved by
// header name so the loader tolerates reordered or extended files.
func Load(csvPath string) ([]books.Book, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var records []books.Book
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("Error reading record", "error", err)
			continue
		}

		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		records = append(records, books.Book{
			Title:          cell("title"),
			Author:         cell("author"),
			Description:    cell("description"),
			Date:           cell("date"),
			Publisher:      cell("publisher"),
			Language:       cell("language"),
			Subjects:       cell("subjects"),
			Categories:     cell("categories"),
			ISBN:           cell("isbn"),
			Pages:          cell("pages"),
			Source:         cell("source"),
			Identifier:     cell("identifier"),
			DownloadCount:  parseIntField(cell("download_count")),
			FileSize:       parseInt64Field(cell("file_size")),
			PDFURL:         cell("pdf_url"),
			CoverURL:       cell("cover_url"),
			LocalPDFPath:   cell("local_pdf_path"),
			LocalCoverPath: cell("local_cover_path"),
			AddedDate:      cell("added_date"),
		})
	}

	return records, nil
}

// Search returns records whose title, author or description contains the
// query, case-insensitively.
func Search(records []books.Book, query string) []books.Book {
	query = strings.ToLower(query)
	var matches []books.Book
	for _, record := range records {
		if containsFold(record.Title, query) ||
			containsFold(record.Author, query) ||
			containsFold(record.Description, query) {
			matches = append(matches, record)
		}
	}
	return matches
}

// ByCategory returns records whose categories contain the given category.
func ByCategory(records []books.Book, category string) []books.Book {
	category = strings.ToLower(category)
	var matches []books.Book
	for _, record := range records {
		if containsFold(record.Categories, category) {
			matches = append(matches, record)
		}
	}
	return matches
}

// ByLanguage returns records with an exact language match.
func ByLanguage(records []books.Book, language string) []books.Book {
	var matches []books.Book
	for _, record := range records {
		if strings.EqualFold(record.Language, language) {
			matches = append(matches, record)
		}
	}
	return matches
}

// MostPopular returns the n records with the highest download counts,
// preserving collection order among equal counts.
func MostPopular(records []books.Book, n int) []books.Book {
	if n <= 0 {
		return nil
	}
	sorted := make([]books.Book, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DownloadCount > sorted[j].DownloadCount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func containsFold(haystack, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), lowerNeedle)
}

func parseIntField(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func parseInt64Field(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}
