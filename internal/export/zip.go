package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lepinkainen/alexandria/internal/download"
	"github.com/lepinkainen/alexandria/internal/fileutil"
)

// ArchiveFilename is the fixed name of the collection bundle.
const ArchiveFilename = "free_books_collection.zip"

// WriteArchive bundles the CSV database and every downloaded asset into
// outputDir/free_books_collection.zip, preserving the pdfs/ and covers/
// subdirectory structure.
func WriteArchive(outputDir string) (string, error) {
	zipPath := filepath.Join(outputDir, ArchiveFilename)
	file, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create zip archive: %w", err)
	}
	defer func() { _ = file.Close() }()

	zw := zip.NewWriter(file)

	csvPath := filepath.Join(outputDir, CSVFilename)
	if fileutil.FileExists(csvPath) {
		if err := addFile(zw, csvPath, CSVFilename); err != nil {
			return "", err
		}
	}

	for _, subdir := range []string{download.PDFDir, download.CoverDir} {
		if err := addDir(zw, filepath.Join(outputDir, subdir), subdir); err != nil {
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize zip archive: %w", err)
	}

	slog.Info("Created zip archive", "path", zipPath)
	return zipPath, nil
}

func addDir(zw *zip.Writer, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(dir, entry.Name())
		if err := addFile(zw, src, prefix+"/"+entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func addFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	return nil
}
