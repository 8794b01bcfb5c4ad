package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "simple", "simple"},
		{"reserved characters stripped", `a<b>c:d"e/f\g|h?i*j`, "abcdefghij"},
		{"whitespace collapsed to underscore", "a  b\tc", "a_b_c"},
		{"surrounding whitespace trimmed", "  padded  ", "padded"},
		{"control characters removed", "a\x00b\x1fc", "abc"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("x", 500)
	result := SanitizeFilename(long)
	require.Len(t, result, 200)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	require.False(t, FileExists(filepath.Join(dir, "missing.txt")))

	path := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.True(t, FileExists(path))

	// Directories are not files.
	require.False(t, FileExists(dir))
}

func TestWriteJSONFileCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "out.json")

	err := WriteJSONFile(map[string]int{"count": 3}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, 3, decoded["count"])
	// Output is indented for human reading.
	require.Contains(t, string(data), "\n  ")
}

func TestWriteJSONFileUnmarshalableValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	err := WriteJSONFile(func() {}, path)
	require.Error(t, err)
}
