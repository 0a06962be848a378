package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/japaniel/lexilight/pkg/highlight"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyWord is returned for words whose text is blank.
	ErrEmptyWord = errors.New("word must be non-empty")
	// ErrInvalidLevel is returned for levels outside 1-5.
	ErrInvalidLevel = fmt.Errorf("level must be between %d and %d", highlight.MinLevel, highlight.MaxLevel)
	// ErrDuplicateTitle is returned when a story title is already taken.
	ErrDuplicateTitle = errors.New("story title already exists")
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

func validateWord(w *Word) error {
	w.Word = strings.TrimSpace(w.Word)
	if w.Word == "" {
		return ErrEmptyWord
	}
	if !highlight.Level(w.Level).Valid() {
		return ErrInvalidLevel
	}
	return nil
}

// CreateWord inserts w with a fresh id. A zero level defaults to 1 and a zero
// DateAdded to now.
func CreateWord(db DBExecutor, w Word) (Word, error) {
	if w.Level == 0 {
		w.Level = highlight.DefaultLevel
	}
	if err := validateWord(&w); err != nil {
		return Word{}, err
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.DateAdded.IsZero() {
		w.DateAdded = time.Now().UTC()
	}

	_, err := db.Exec(`INSERT INTO words (id, word, level, language, definition, notes, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Word, w.Level, w.Language, w.Definition, w.Notes, w.DateAdded)
	if err != nil {
		return Word{}, fmt.Errorf("insert word: %w", err)
	}
	return w, nil
}

const wordColumns = `id, word, level, language, definition, notes, date_added`

// GetWord returns the word with the given id.
func GetWord(db DBExecutor, id string) (Word, error) {
	row := db.QueryRow(`SELECT `+wordColumns+` FROM words WHERE id = ?`, id)
	w, err := scanWord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Word{}, ErrNotFound
	}
	return w, err
}

// requireWord returns ErrNotFound when no word has id.
func requireWord(db DBExecutor, id string) error {
	var one int
	err := db.QueryRow(`SELECT 1 FROM words WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// FindWord returns the oldest word with the given text and language, compared
// case-insensitively.
func FindWord(db DBExecutor, text, language string) (Word, error) {
	row := db.QueryRow(`SELECT `+wordColumns+` FROM words
		WHERE word = ? COLLATE NOCASE AND language = ?
		ORDER BY date_added, id LIMIT 1`, strings.TrimSpace(text), language)
	w, err := scanWord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Word{}, ErrNotFound
	}
	return w, err
}

// UpdateWord replaces the editable fields of an existing word. An unknown id
// is reported as ErrNotFound before the fields are validated.
func UpdateWord(db DBExecutor, w Word) error {
	if err := requireWord(db, w.ID); err != nil {
		return err
	}
	if err := validateWord(&w); err != nil {
		return err
	}
	res, err := db.Exec(`UPDATE words SET word = ?, level = ?, language = ?, definition = ?, notes = ? WHERE id = ?`,
		w.Word, w.Level, w.Language, w.Definition, w.Notes, w.ID)
	if err != nil {
		return fmt.Errorf("update word: %w", err)
	}
	return requireAffected(res)
}

// UpdateWordLevel sets only the level of a word. Like UpdateWord, an unknown
// id wins over an invalid level.
func UpdateWordLevel(db DBExecutor, id string, level int) error {
	if err := requireWord(db, id); err != nil {
		return err
	}
	if !highlight.Level(level).Valid() {
		return ErrInvalidLevel
	}
	res, err := db.Exec(`UPDATE words SET level = ? WHERE id = ?`, level, id)
	if err != nil {
		return fmt.Errorf("update level: %w", err)
	}
	return requireAffected(res)
}

// UpdateWordDefinition sets the tooltip definition for a given word.
func UpdateWordDefinition(db DBExecutor, id, definition string) error {
	res, err := db.Exec(`UPDATE words SET definition = ? WHERE id = ?`, definition, id)
	if err != nil {
		return fmt.Errorf("update definition: %w", err)
	}
	return requireAffected(res)
}

// DeleteWord removes a word and its sightings.
func DeleteWord(db DBExecutor, id string) error {
	if _, err := db.Exec(`DELETE FROM word_sightings WHERE word_id = ?`, id); err != nil {
		return fmt.Errorf("delete sightings: %w", err)
	}
	res, err := db.Exec(`DELETE FROM words WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete word: %w", err)
	}
	return requireAffected(res)
}

// ListWords returns words matching filter, oldest first.
func ListWords(db DBExecutor, filter WordFilter) ([]Word, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, "word LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Language != "" {
		conditions = append(conditions, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.Level != 0 {
		conditions = append(conditions, "level = ?")
		args = append(args, filter.Level)
	}
	if filter.MissingDefinition {
		conditions = append(conditions, "definition = ''")
	}

	query := `SELECT ` + wordColumns + ` FROM words`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date_added, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()
	var out []Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadWordList returns every stored word, optionally limited to one language,
// keyed by id as the highlighter expects.
func LoadWordList(db DBExecutor, language string) (highlight.WordList, error) {
	words, err := ListWords(db, WordFilter{Language: language})
	if err != nil {
		return nil, err
	}
	wl := make(highlight.WordList, len(words))
	for _, w := range words {
		wl[w.ID] = w.Tracked()
	}
	return wl, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWord(s scanner) (Word, error) {
	var w Word
	if err := s.Scan(&w.ID, &w.Word, &w.Level, &w.Language, &w.Definition, &w.Notes, &w.DateAdded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Word{}, err
		}
		return Word{}, fmt.Errorf("scan word: %w", err)
	}
	return w, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, url, title, siteName string) (int64, error) {
	trimmedURL := strings.TrimSpace(url)
	if trimmedURL == "" {
		return 0, fmt.Errorf("url must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := db.QueryRow(`SELECT id FROM sources WHERE url = ?`, trimmedURL).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		res, err := db.Exec(
			`INSERT INTO sources (url, title, site_name, added_at) VALUES (?, ?, ?, ?)`,
			trimmedURL, title, siteName, time.Now().UTC(),
		)
		if err != nil {
			// Another writer inserted the same url; select again.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

// RecordSighting adds count occurrences of a word on a source.
func RecordSighting(db DBExecutor, wordID string, sourceID int64, count int) error {
	if wordID == "" {
		return fmt.Errorf("wordID must be non-empty")
	}
	if sourceID <= 0 {
		return fmt.Errorf("sourceID must be positive")
	}
	if count < 1 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO word_sightings (word_id, source_id, occurrence_count, first_seen_at, last_seen_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(word_id, source_id) DO UPDATE SET
	  occurrence_count = word_sightings.occurrence_count + excluded.occurrence_count,
	  last_seen_at = excluded.last_seen_at`, wordID, sourceID, count, now, now)
	if err != nil {
		return fmt.Errorf("record sighting: %w", err)
	}
	return nil
}

// GetSightings lists the sources a word was seen on, most recent first.
func GetSightings(db DBExecutor, wordID string) ([]Sighting, error) {
	rows, err := db.Query(`SELECT ws.word_id, ws.source_id, s.url, s.title, ws.occurrence_count, ws.first_seen_at, ws.last_seen_at
		FROM word_sightings ws JOIN sources s ON s.id = ws.source_id
		WHERE ws.word_id = ? ORDER BY ws.last_seen_at DESC, s.id`, wordID)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()
	var out []Sighting
	for rows.Next() {
		var s Sighting
		if err := rows.Scan(&s.WordID, &s.SourceID, &s.URL, &s.Title, &s.OccurrenceCount, &s.FirstSeenAt, &s.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWordsBySource returns words seen on a given source.
func GetWordsBySource(db DBExecutor, sourceID int64) ([]Word, error) {
	rows, err := db.Query(`SELECT w.id, w.word, w.level, w.language, w.definition, w.notes, w.date_added
		FROM words w JOIN word_sightings ws ON ws.word_id = w.id WHERE ws.source_id = ? ORDER BY w.date_added, w.id`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
