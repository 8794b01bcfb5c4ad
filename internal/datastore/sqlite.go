// Package datastore provides the optional SQLite export of a collected
// record set for downstream querying.
package datastore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lepinkainen/alexandria/internal/books"
)

const booksSchema = `CREATE TABLE IF NOT EXISTS books (
	title TEXT,
	author TEXT,
	description TEXT,
	date TEXT,
	publisher TEXT,
	language TEXT,
	subjects TEXT,
	categories TEXT,
	isbn TEXT,
	pages TEXT,
	source TEXT NOT NULL,
	identifier TEXT NOT NULL,
	download_count INTEGER,
	file_size INTEGER,
	pdf_url TEXT,
	cover_url TEXT,
	local_pdf_path TEXT,
	local_cover_path TEXT,
	added_date TEXT,
	PRIMARY KEY (source, identifier)
)`

// SQLiteStore persists collected books into a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLiteStore instance
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
	}
}

// Connect opens a connection to the SQLite database and ensures the books
// table exists.
func (s *SQLiteStore) Connect() error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(booksSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create books table: %w", err)
	}
	s.db = db
	return nil
}

// InsertBooks inserts all records in one transaction. Records for a
// (source, identifier) pair already present are replaced.
func (s *SQLiteStore) InsertBooks(records []books.Book) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op after a successful commit.
		_ = tx.Rollback()
	}()

	columns := books.CSVColumns
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO books (%s) VALUES (%s)",
		strings.Join(columns, ", "),
		placeholders,
	)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		fields := record.Map()
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = fields[col]
		}
		if _, err := stmt.Exec(values...); err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", record.Source, record.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
