package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/alexandria/internal/books"
)

func TestAggregateCounts(t *testing.T) {
	records := []books.Book{
		{Source: books.SourceArchive, Language: "en", LocalPDFPath: "a.pdf", LocalCoverPath: "a.jpg"},
		{Source: books.SourceArchive, Language: "en", LocalPDFPath: "b.pdf"},
		{Source: books.SourceGutenberg, Language: "fi"},
	}

	stats := Aggregate(records)

	require.Equal(t, 3, stats.TotalBooks)
	require.Equal(t, 2, stats.BooksWithPDF)
	require.Equal(t, 1, stats.BooksWithCovers)
	require.Equal(t, map[string]int{books.SourceArchive: 2, books.SourceGutenberg: 1}, stats.Sources)
	require.Equal(t, map[string]int{"en": 2, "fi": 1}, stats.Languages)
}

func TestAggregateEmptyFieldsCountAsUnknown(t *testing.T) {
	stats := Aggregate([]books.Book{{}})

	require.Equal(t, map[string]int{"unknown": 1}, stats.Sources)
	require.Equal(t, map[string]int{books.LanguageUnknown: 1}, stats.Languages)
}

func TestAggregateCountsAreOrderIndependent(t *testing.T) {
	records := []books.Book{
		{Source: books.SourceArchive, Language: "en"},
		{Source: books.SourceGutenberg, Language: "fi"},
		{Source: books.SourceArchive, Language: "en"},
	}
	reversed := []books.Book{records[2], records[1], records[0]}

	first := Aggregate(records)
	second := Aggregate(reversed)

	require.Equal(t, first.TotalBooks, second.TotalBooks)
	require.Equal(t, first.Sources, second.Sources)
	require.Equal(t, first.Languages, second.Languages)
}

func TestAggregateCategoriesCapPerBook(t *testing.T) {
	// Only the first three categories of a record feed the table.
	records := []books.Book{
		{Categories: "a, b, c, d, e"},
	}

	stats := Aggregate(records)

	require.Len(t, stats.TopCategories, 3)
	require.Equal(t, "a", stats.TopCategories[0].Category)
	require.Equal(t, "b", stats.TopCategories[1].Category)
	require.Equal(t, "c", stats.TopCategories[2].Category)
}

func TestAggregateTopCategoriesOrdering(t *testing.T) {
	records := []books.Book{
		{Categories: "history, science"},
		{Categories: "science"},
		{Categories: "history"},
		{Categories: "art"},
	}

	stats := Aggregate(records)

	require.Equal(t, []CategoryCount{
		{Category: "history", Count: 2},
		{Category: "science", Count: 2},
		{Category: "art", Count: 1},
	}, stats.TopCategories)
}

func TestAggregateTopCategoriesCappedAtTen(t *testing.T) {
	records := make([]books.Book, 0, 15)
	for i := 0; i < 15; i++ {
		records = append(records, books.Book{Categories: fmt.Sprintf("cat%02d", i)})
	}

	stats := Aggregate(records)
	require.Len(t, stats.TopCategories, 10)
}

func TestWritePersistsStatistics(t *testing.T) {
	outputDir := t.TempDir()
	stats := Aggregate([]books.Book{
		{Source: books.SourceArchive, Language: "en", Categories: "history"},
	})

	path, err := Write(stats, outputDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outputDir, StatisticsFilename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Statistics
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, stats, decoded)
}
