// Package export persists the collected record set: the CSV database that
// is the run's primary contract, and the optional zip bundle of the CSV
// plus all downloaded assets.
package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lepinkainen/alexandria/internal/books"
)

// CSVFilename is the fixed name of the collection database.
const CSVFilename = "books_database.csv"

// WriteCSV serializes all records to outputDir/books_database.csv with the
// fixed header row, preserving record order exactly. This is the only step
// whose failure is fatal for the run.
func WriteCSV(records []books.Book, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	csvPath := filepath.Join(outputDir, CSVFilename)
	file, err := os.Create(csvPath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(books.CSVColumns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(record.CSVRow()); err != nil {
			return "", fmt.Errorf("failed to write CSV row for %s: %w", record.Identifier, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	slog.Info("Saved collection CSV", "path", csvPath, "records", len(records))
	return csvPath, nil
}
