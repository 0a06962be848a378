package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the column layout written by ExportCSV. Related Words is kept
// for compatibility with older exports; it is written empty and ignored on import.
var CSVHeader = []string{"Word", "Level", "Language", "Notes", "Definition", "Date Added", "Related Words"}

// ImportResult contains the results of a CSV import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Changed reports whether the import touched any word.
func (r *ImportResult) Changed() bool { return r.Imported+r.Updated > 0 }

// ExportCSV writes the words matching filter, oldest first.
func ExportCSV(db DBExecutor, w io.Writer, filter WordFilter) error {
	words, err := ListWords(db, filter)
	if err != nil {
		return fmt.Errorf("failed to fetch words: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, word := range words {
		record := []string{
			word.Word,
			strconv.Itoa(word.Level),
			word.Language,
			word.Notes,
			word.Definition,
			word.DateAdded.UTC().Format(time.RFC3339),
			"",
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportCSV reads words in the ExportCSV layout. Columns are matched by name,
// case-insensitively, and only Word is required. A row whose word and language
// match a stored word replaces that word's fields; other rows create words.
// Bad rows are skipped and reported in the result.
func ImportCSV(db DBExecutor, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	if _, ok := colIndex["word"]; !ok {
		return nil, fmt.Errorf("missing required column: word")
	}
	field := func(record []string, name string) string {
		if idx, ok := colIndex[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	result := &ImportResult{}
	lineNum := 1 // Header is line 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			result.Skipped++
			continue
		}

		word := Word{
			Word:       field(record, "word"),
			Language:   field(record, "language"),
			Notes:      field(record, "notes"),
			Definition: field(record, "definition"),
		}
		if word.Word == "" {
			// blank lines and rows without a word
			result.Skipped++
			continue
		}
		if v := field(record, "level"); v != "" {
			level, err := strconv.Atoi(v)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid level %q", lineNum, v))
				result.Skipped++
				continue
			}
			word.Level = level
		}
		if v := field(record, "date added"); v != "" {
			if t, ok := parseDate(v); ok {
				word.DateAdded = t
			}
		}

		existing, err := FindWord(db, word.Word, word.Language)
		switch {
		case err == nil:
			word.ID = existing.ID
			if word.Level == 0 {
				word.Level = existing.Level
			}
			err = UpdateWord(db, word)
			if err == nil {
				result.Updated++
				continue
			}
		case errors.Is(err, ErrNotFound):
			_, err = CreateWord(db, word)
			if err == nil {
				result.Imported++
				continue
			}
		}
		result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
		result.Skipped++
	}
	return result, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "1/2/2006"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
