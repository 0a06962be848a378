package dictionary

import (
	"database/sql"
	"log"
	"sort"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/highlight"
)

// Importer looks words up in an in-memory index of the dictionary and writes
// definitions back to the word store.
type Importer struct {
	conn *sql.DB
	// Key: kanji or kana text. The index is built once and only read afterwards.
	index map[string][]JMdictEntry
	// MaxSenses bounds the tooltip length. Zero means DefaultMaxSenses.
	MaxSenses int
	// Logger reports words that could not be updated. nil means no logging.
	Logger *log.Logger
}

// NewImporter creates an importer and builds an in-memory index of the provided dictionary.
func NewImporter(conn *sql.DB, entries []JMdictEntry) *Importer {
	idx := make(map[string][]JMdictEntry)
	for _, e := range entries {
		for _, k := range e.Kanji {
			idx[k.Text] = append(idx[k.Text], e)
		}
		for _, k := range e.Kana {
			idx[k.Text] = append(idx[k.Text], e)
		}
	}
	return &Importer{conn: conn, index: idx}
}

// Len returns the number of indexed spellings.
func (im *Importer) Len() int { return len(im.index) }

// FillDefinitions sets a definition on every stored word that lacks one and
// has a dictionary match. language limits the words considered; empty means
// all. It returns how many words were updated.
func (im *Importer) FillDefinitions(language string) (int, error) {
	words, err := db.ListWords(im.conn, db.WordFilter{Language: language, MissingDefinition: true})
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, w := range words {
		def := im.Define(w.Word)
		if def == "" {
			continue
		}
		if err := db.UpdateWordDefinition(im.conn, w.ID, def); err != nil {
			if im.Logger != nil {
				im.Logger.Printf("dictionary: failed to update word %s: %v", w.ID, err)
			}
			continue
		}
		updated++
	}
	return updated, nil
}

// Define returns the tooltip text for a word, or "" when the dictionary has
// no entry for it.
func (im *Importer) Define(word string) string {
	word = highlight.NormalizeText(word)
	matches, _ := im.Lookup(word, word, "")
	return Summarize(matches, im.MaxSenses)
}

// Lookup finds matching entries for a given word, lemma, and pronunciation.
func (im *Importer) Lookup(word, lemma, pronunciation string) ([]JMdictEntry, error) {
	matches := im.findMatches(word, lemma, pronunciation)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches, nil
}

func (im *Importer) findMatches(word, lemma, pronunciation string) []JMdictEntry {
	// Candidates come from the surface and base form, deduped by entry id,
	// then filtered by reading when one is known.
	candidates := make(map[string]JMdictEntry)
	search := func(term string) {
		if term == "" {
			return
		}
		for _, e := range im.index[term] {
			candidates[e.Id] = e
		}
	}
	search(word)
	search(lemma)

	var results []JMdictEntry
	for _, entry := range candidates {
		if isMatch(entry, word, lemma, pronunciation) {
			results = append(results, entry)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Id < results[j].Id
	})
	return results
}

func isMatch(entry JMdictEntry, word, lemma, pronunciation string) bool {
	hasText := false
	for _, k := range entry.Kanji {
		if k.Text == word || k.Text == lemma {
			hasText = true
			break
		}
	}
	for _, k := range entry.Kana {
		if k.Text == word || k.Text == lemma {
			hasText = true
			break
		}
	}
	if !hasText {
		return false
	}
	if pronunciation == "" {
		return true
	}

	normalizedPron := ToHiragana(pronunciation)
	for _, k := range entry.Kana {
		if ToHiragana(k.Text) == normalizedPron {
			return true
		}
	}
	return false
}
