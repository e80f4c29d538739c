// Package transcripts provides transcript sources for the pipeline: a
// SQLite catalog of fetched transcripts and a JSON file loader.
package transcripts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"coachrag/internal/domain"
)

// DefaultMinLength is the minimum transcript length in characters; the
// catalog skips anything shorter as not long-form content.
const DefaultMinLength = 1000

// Catalog is a SQLite-backed transcript store. It implements
// domain.TranscriptSource.
type Catalog struct {
	db        *sql.DB
	minLength int
}

// OpenCatalog opens (creating if needed) the catalog database at path.
func OpenCatalog(path string, minLength int) (*Catalog, error) {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Catalog{db: db, minLength: minLength}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	source_url    TEXT NOT NULL DEFAULT '',
	published_at  DATETIME,
	transcript    TEXT NOT NULL DEFAULT '',
	summary       TEXT NOT NULL DEFAULT '',
	topics        TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_transcripts_published_at ON transcripts(published_at);
`

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// Put inserts or replaces a transcript record.
func (c *Catalog) Put(ctx context.Context, rec domain.TranscriptRecord) error {
	topics, err := json.Marshal(rec.Topics)
	if err != nil {
		return fmt.Errorf("encoding topics: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transcripts (id, title, source_url, published_at, transcript, summary, topics)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.SourceURL, rec.PublishedAt.UTC().Format(time.RFC3339),
		rec.RawText, rec.Summary, string(topics))
	if err != nil {
		return fmt.Errorf("storing transcript %s: %w", rec.ID, err)
	}
	return nil
}

// Fetch returns up to limit long-form transcripts, newest first.
func (c *Catalog) Fetch(ctx context.Context, limit int) ([]domain.TranscriptRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, source_url, published_at, transcript, summary, topics
		FROM transcripts
		WHERE length(transcript) >= ?
		ORDER BY published_at DESC
		LIMIT ?`, c.minLength, limit)
	if err != nil {
		return nil, fmt.Errorf("querying transcripts: %w", err)
	}
	defer rows.Close()

	var records []domain.TranscriptRecord
	for rows.Next() {
		var rec domain.TranscriptRecord
		var published sql.NullString
		var topics string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.SourceURL, &published, &rec.RawText, &rec.Summary, &topics); err != nil {
			return nil, fmt.Errorf("scanning transcript row: %w", err)
		}
		if published.Valid {
			if ts, err := time.Parse(time.RFC3339, published.String); err == nil {
				rec.PublishedAt = ts
			}
		}
		if topics != "" {
			_ = json.Unmarshal([]byte(topics), &rec.Topics)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
