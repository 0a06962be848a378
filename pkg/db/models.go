package db

import (
	"encoding/json"
	"time"

	"github.com/japaniel/lexilight/pkg/highlight"
)

// Word is a tracked vocabulary entry.
type Word struct {
	ID         string    `json:"id"`
	Word       string    `json:"word"`
	Level      int       `json:"level"`
	Language   string    `json:"language"`
	Definition string    `json:"definition"`
	Notes      string    `json:"notes"`
	DateAdded  time.Time `json:"date_added"`
}

// Tracked converts the row into the shape the highlighter consumes.
func (w Word) Tracked() highlight.TrackedWord {
	return highlight.TrackedWord{
		ID:         w.ID,
		Word:       w.Word,
		Level:      highlight.Level(w.Level),
		Language:   w.Language,
		Definition: w.Definition,
		Notes:      w.Notes,
	}
}

// WordFilter narrows ListWords.
type WordFilter struct {
	Search            string
	Language          string
	Level             int
	MissingDefinition bool
	Limit             int
	Offset            int
}

// Source is a page a word was seen on.
type Source struct {
	ID       int64     `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	SiteName string    `json:"site_name"`
	AddedAt  time.Time `json:"added_at"`
}

// Sighting aggregates how often a word was highlighted on one source.
type Sighting struct {
	WordID          string    `json:"word_id"`
	SourceID        int64     `json:"source_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

// Story is a saved text with its computed level distribution.
type Story struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Language     string          `json:"language"`
	Content      string          `json:"content"`
	Distribution json.RawMessage `json:"distribution"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
