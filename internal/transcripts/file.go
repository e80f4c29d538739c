package transcripts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"coachrag/internal/domain"
)

// fileRecord is the JSON shape of one exported transcript.
type fileRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Transcript  string   `json:"transcript"`
	Summary     string   `json:"summary,omitempty"`
	Topics      []string `json:"topics,omitempty"`
}

// FileSource loads transcripts from a JSON array file. It implements
// domain.TranscriptSource.
type FileSource struct {
	path      string
	minLength int
}

// NewFileSource creates a source reading from path. Transcripts shorter
// than minLength characters are skipped.
func NewFileSource(path string, minLength int) *FileSource {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &FileSource{path: path, minLength: minLength}
}

// Fetch reads and filters the file; limit caps the number returned.
func (s *FileSource) Fetch(ctx context.Context, limit int) ([]domain.TranscriptRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading transcripts file: %w", err)
	}
	var raw []fileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding transcripts file: %w", err)
	}
	if limit <= 0 {
		limit = len(raw)
	}
	var records []domain.TranscriptRecord
	for _, r := range raw {
		if len(records) >= limit {
			break
		}
		if len(r.Transcript) < s.minLength {
			continue
		}
		rec := domain.TranscriptRecord{
			ID:        r.ID,
			RawText:   r.Transcript,
			Title:     r.Title,
			SourceURL: r.URL,
			Summary:   r.Summary,
			Topics:    r.Topics,
		}
		if r.PublishedAt != "" {
			if ts, err := time.Parse(time.RFC3339, r.PublishedAt); err == nil {
				rec.PublishedAt = ts
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
