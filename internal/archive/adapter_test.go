package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/lepinkainen/alexandria/internal/errors"
	"github.com/lepinkainen/alexandria/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New("test", time.Microsecond)
}

func metadataDoc(title string) string {
	return fmt.Sprintf(`{
		"metadata": {
			"title": %q,
			"creator": ["Author One", "Author Two"],
			"description": "A description",
			"date": "1901",
			"publisher": "Pub",
			"language": ["eng"],
			"subject": ["History", "Maps"],
			"download_count": 321
		},
		"files": [
			{"name": "item_cover.jpg"},
			{"name": "item_text.pdf"}
		]
	}`, title)
}

func newCatalog(t *testing.T, pages map[int][]string, broken map[string]bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/advancedsearch.php", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		var docs []map[string]string
		for p, ids := range pages {
			if fmt.Sprint(p) != page {
				continue
			}
			for _, id := range ids {
				docs = append(docs, map[string]string{"identifier": id})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"numFound": len(docs), "docs": docs},
		})
	})

	mux.HandleFunc("/metadata/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/metadata/"):]
		if broken[id] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(metadataDoc("Title " + id)))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchCollectsUpToTarget(t *testing.T) {
	server := newCatalog(t, map[int][]string{1: {"a", "b", "c"}}, nil)
	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	records, err := adapter.Fetch(context.Background(), 2, nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].Identifier)
	require.Equal(t, "Title a", records[0].Title)
	require.Equal(t, "Author One", records[0].Author)
	require.Equal(t, "eng", records[0].Language)
	require.Equal(t, []string{"History", "Maps"}, records[0].Subjects)
	require.Equal(t, 321, records[0].DownloadCount)
	require.Equal(t, server.URL+"/download/a/item_text.pdf", records[0].PDFURL)
	require.Equal(t, server.URL+"/download/a/item_cover.jpg", records[0].CoverURL)
}

func TestFetchSkipsFailedItemAndContinuesPage(t *testing.T) {
	server := newCatalog(t,
		map[int][]string{1: {"good1", "bad", "good2"}},
		map[string]bool{"bad": true})
	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	records, err := adapter.Fetch(context.Background(), 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "good1", records[0].Identifier)
	require.Equal(t, "good2", records[1].Identifier)
}

func TestFetchStopsWhenSourceExhausted(t *testing.T) {
	// A single short page means there is no page 2 to ask for.
	server := newCatalog(t, map[int][]string{1: {"only"}}, nil)
	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	records, err := adapter.Fetch(context.Background(), 50, nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestFetchExcludesExistingIdentifiers(t *testing.T) {
	server := newCatalog(t, map[int][]string{1: {"a", "b"}}, nil)
	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	records, err := adapter.Fetch(context.Background(), 10, nil, map[string]bool{"a": true})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "b", records[0].Identifier)
}

func TestFetchSourceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	records, err := adapter.Fetch(context.Background(), 5, nil, nil)
	require.Error(t, err)
	require.True(t, apperrors.IsSourceUnavailable(err))
	require.Empty(t, records)
}

func TestFetchLanguageFilterInQuery(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/advancedsearch.php", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"response":{"numFound":0,"docs":[]}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	_, err := adapter.Fetch(context.Background(), 5, []string{"en", "fr"}, nil)
	require.NoError(t, err)
	require.Contains(t, gotQuery, "AND language:(en OR fr)")
}

func TestFetchSkipsItemWithoutTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/advancedsearch.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			_, _ = w.Write([]byte(`{"response":{"numFound":0,"docs":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":{"numFound":1,"docs":[{"identifier":"untitled"}]}}`))
	})
	mux.HandleFunc("/metadata/untitled", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metadata":{},"files":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := New(testLimiter(),
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()))

	records, err := adapter.Fetch(context.Background(), 5, nil, nil)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSelectFiles(t *testing.T) {
	tests := []struct {
		name      string
		files     []fileEntry
		wantPDF   string
		wantCover string
	}{
		{
			name: "prefers text pdf and cover image",
			files: []fileEntry{
				{Name: "scan_cover.jpg"},
				{Name: "book_text.pdf"},
			},
			wantPDF:   "book_text.pdf",
			wantCover: "scan_cover.jpg",
		},
		{
			name: "first matching file wins",
			files: []fileEntry{
				{Name: "first.pdf"},
				{Name: "second.pdf"},
				{Name: "thumb1.png"},
				{Name: "thumb2.png"},
			},
			wantPDF:   "first.pdf",
			wantCover: "thumb1.png",
		},
		{
			name: "exact extension required",
			files: []fileEntry{
				{Name: "notes.pdf.txt"},
				{Name: "cover.jpg.bak"},
			},
			wantPDF:   "",
			wantCover: "",
		},
		{
			name: "cover-named pdf is not the book",
			files: []fileEntry{
				{Name: "item_cover.pdf"},
			},
			wantPDF:   "",
			wantCover: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf, cover := selectFiles(tt.files)
			require.Equal(t, tt.wantPDF, pdf)
			require.Equal(t, tt.wantCover, cover)
		})
	}
}

func TestMultiValueDecoding(t *testing.T) {
	var meta itemMetadata
	payload := `{
		"title": ["Array Title"],
		"creator": "Solo Author",
		"download_count": 12,
		"subject": "Single Subject"
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &meta))

	require.Equal(t, "Array Title", meta.Title.First())
	require.Equal(t, "Solo Author", meta.Creator.First())
	require.Equal(t, 12, meta.DownloadCount.Int())
	require.Equal(t, []string{"Single Subject"}, meta.Subject.List())
	require.Equal(t, "", meta.Language.First())
}
