package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const storyColumns = `id, title, language, content, distribution, created_at, updated_at`

// CreateStory inserts s. Titles are unique regardless of case.
func CreateStory(db DBExecutor, s Story) (Story, error) {
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return Story{}, fmt.Errorf("story title must be non-empty")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if len(s.Distribution) == 0 {
		s.Distribution = []byte("{}")
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := db.Exec(`INSERT INTO stories (`+storyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Language, s.Content, string(s.Distribution), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return Story{}, ErrDuplicateTitle
		}
		return Story{}, fmt.Errorf("insert story: %w", err)
	}
	return s, nil
}

// GetStory returns the story with the given id.
func GetStory(db DBExecutor, id string) (Story, error) {
	return queryStory(db, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
}

// GetStoryByTitle looks a story up by title, ignoring case.
func GetStoryByTitle(db DBExecutor, title string) (Story, error) {
	return queryStory(db, `SELECT `+storyColumns+` FROM stories WHERE title = ?`, strings.TrimSpace(title))
}

func queryStory(db DBExecutor, query string, arg string) (Story, error) {
	s, err := scanStory(db.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Story{}, ErrNotFound
	}
	return s, err
}

// UpdateStory replaces title, language, content and distribution.
func UpdateStory(db DBExecutor, s Story) (Story, error) {
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return Story{}, fmt.Errorf("story title must be non-empty")
	}
	if len(s.Distribution) == 0 {
		s.Distribution = []byte("{}")
	}
	s.UpdatedAt = time.Now().UTC()
	res, err := db.Exec(`UPDATE stories SET title = ?, language = ?, content = ?, distribution = ?, updated_at = ? WHERE id = ?`,
		s.Title, s.Language, s.Content, string(s.Distribution), s.UpdatedAt, s.ID)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return Story{}, ErrDuplicateTitle
		}
		return Story{}, fmt.Errorf("update story: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return Story{}, err
	}
	return GetStory(db, s.ID)
}

// ListStories returns stories, newest first.
func ListStories(db DBExecutor) ([]Story, error) {
	rows, err := db.Query(`SELECT ` + storyColumns + ` FROM stories ORDER BY created_at DESC, title`)
	if err != nil {
		return nil, fmt.Errorf("query stories: %w", err)
	}
	defer rows.Close()
	var out []Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteStory removes a story.
func DeleteStory(db DBExecutor, id string) error {
	res, err := db.Exec(`DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	return requireAffected(res)
}

func scanStory(s scanner) (Story, error) {
	var st Story
	var dist string
	if err := s.Scan(&st.ID, &st.Title, &st.Language, &st.Content, &dist, &st.CreatedAt, &st.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Story{}, err
		}
		return Story{}, fmt.Errorf("scan story: %w", err)
	}
	st.Distribution = []byte(dist)
	return st, nil
}
