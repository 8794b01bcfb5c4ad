// Package stats computes deterministic aggregate statistics over the final
// record set. Every record is inspected exactly once; counts are simple
// predicate counts and top-N tables break ties by first-seen order.
package stats

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/lepinkainen/alexandria/internal/books"
	"github.com/lepinkainen/alexandria/internal/fileutil"
)

// StatisticsFilename is the persisted copy of the aggregate statistics.
const StatisticsFilename = "scraping_statistics.json"

// categoriesPerBook caps how many of a record's categories feed the top-N
// table.
const categoriesPerBook = 3

// topCategoryCount is the size of the top categories table.
const topCategoryCount = 10

// CategoryCount is one row of the top categories table.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Statistics summarizes the collected record set.
type Statistics struct {
	TotalBooks      int             `json:"total_books"`
	BooksWithPDF    int             `json:"books_with_pdf"`
	BooksWithCovers int             `json:"books_with_covers"`
	Sources         map[string]int  `json:"sources"`
	Languages       map[string]int  `json:"languages"`
	TopCategories   []CategoryCount `json:"top_categories"`
}

// Aggregate computes statistics over records. Count results are independent
// of record order; the top categories table is ordered by count descending
// with first-seen order breaking ties.
func Aggregate(records []books.Book) Statistics {
	stats := Statistics{
		TotalBooks: len(records),
		Sources:    make(map[string]int),
		Languages:  make(map[string]int),
	}

	categoryCounts := make(map[string]int)
	categoryOrder := make(map[string]int)

	for _, record := range records {
		if record.LocalPDFPath != "" {
			stats.BooksWithPDF++
		}
		if record.LocalCoverPath != "" {
			stats.BooksWithCovers++
		}

		source := record.Source
		if source == "" {
			source = "unknown"
		}
		stats.Sources[source]++

		language := record.Language
		if language == "" {
			language = books.LanguageUnknown
		}
		stats.Languages[language]++

		for i, category := range strings.Split(record.Categories, ",") {
			if i >= categoriesPerBook {
				break
			}
			category = strings.TrimSpace(category)
			if category == "" {
				continue
			}
			if _, ok := categoryOrder[category]; !ok {
				categoryOrder[category] = len(categoryOrder)
			}
			categoryCounts[category]++
		}
	}

	stats.TopCategories = topCategories(categoryCounts, categoryOrder)
	return stats
}

func topCategories(counts, order map[string]int) []CategoryCount {
	table := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		table = append(table, CategoryCount{Category: category, Count: count})
	}

	sort.Slice(table, func(i, j int) bool {
		if table[i].Count != table[j].Count {
			return table[i].Count > table[j].Count
		}
		return order[table[i].Category] < order[table[j].Category]
	})

	if len(table) > topCategoryCount {
		table = table[:topCategoryCount]
	}
	return table
}

// Write persists the statistics to outputDir/scraping_statistics.json.
func Write(stats Statistics, outputDir string) (string, error) {
	path := filepath.Join(outputDir, StatisticsFilename)
	if err := fileutil.WriteJSONFile(stats, path); err != nil {
		return "", err
	}
	return path, nil
}
