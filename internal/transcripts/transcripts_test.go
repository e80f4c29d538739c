package transcripts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachrag/internal/domain"
)

func longText(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func testRecord(id string, published time.Time, textWords int) domain.TranscriptRecord {
	return domain.TranscriptRecord{
		ID:          id,
		RawText:     longText("transcript"+id, textWords),
		Title:       "Episode " + id,
		SourceURL:   "https://example.com/" + id,
		PublishedAt: published,
		Topics:      []string{"pricing", "sales"},
	}
}

func TestCatalogPutFetchRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := OpenCatalog(path, 100)
	require.NoError(t, err)
	defer cat.Close()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := testRecord(fmt.Sprintf("v%d", i), base.AddDate(0, 0, i), 50)
		require.NoError(t, cat.Put(ctx, rec))
	}

	records, err := cat.Fetch(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Newest first.
	assert.Equal(t, "v2", records[0].ID)
	assert.Equal(t, "v0", records[2].ID)
	assert.Equal(t, "Episode v2", records[0].Title)
	assert.Equal(t, []string{"pricing", "sales"}, records[0].Topics)
	assert.True(t, records[0].PublishedAt.Equal(base.AddDate(0, 0, 2)))
}

func TestCatalogFiltersShortTranscripts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := OpenCatalog(path, 200)
	require.NoError(t, err)
	defer cat.Close()

	ctx := context.Background()
	require.NoError(t, cat.Put(ctx, testRecord("long", time.Now().UTC(), 100)))
	require.NoError(t, cat.Put(ctx, domain.TranscriptRecord{ID: "short", RawText: "too short"}))

	records, err := cat.Fetch(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "long", records[0].ID)
}

func TestCatalogPutReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := OpenCatalog(path, 10)
	require.NoError(t, err)
	defer cat.Close()

	ctx := context.Background()
	rec := testRecord("v1", time.Now().UTC(), 50)
	require.NoError(t, cat.Put(ctx, rec))
	rec.Title = "Updated title"
	require.NoError(t, cat.Put(ctx, rec))

	records, err := cat.Fetch(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Updated title", records[0].Title)
}

func TestCatalogFetchLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := OpenCatalog(path, 10)
	require.NoError(t, err)
	defer cat.Close()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, cat.Put(ctx, testRecord(fmt.Sprintf("v%d", i), base.AddDate(0, 0, i), 20)))
	}
	records, err := cat.Fetch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "v4", records[0].ID)
	assert.Equal(t, "v3", records[1].ID)
}

func TestFileSource(t *testing.T) {
	long := longText("word", 300)
	content := fmt.Sprintf(`[
  {"id": "a", "title": "A", "url": "https://example.com/a", "published_at": "2024-05-01T00:00:00Z", "transcript": %q, "topics": ["pricing"]},
  {"id": "b", "title": "B", "transcript": "too short"},
  {"id": "c", "title": "C", "transcript": %q}
]`, long, long)
	path := filepath.Join(t.TempDir(), "transcripts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src := NewFileSource(path, 100)
	records, err := src.Fetch(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "c", records[1].ID)
	assert.Equal(t, []string{"pricing"}, records[0].Topics)
	assert.Equal(t, 2024, records[0].PublishedAt.Year())

	limited, err := src.Fetch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.json"), 10)
	_, err := src.Fetch(context.Background(), 0)
	assert.Error(t, err)
}
