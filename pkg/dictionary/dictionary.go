// Package dictionary fills in tooltip definitions for tracked Japanese words
// from a JMdict-simplified export.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// LoadJMdictSimplified reads a dictionary file, either the release wrapper
// object { "words": [...] } or a bare array of entries.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var wrapper struct {
		Words []JMdictEntry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []JMdictEntry
	dec = json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary as object or array: %w", err)
	}
	return entries, nil
}

// DefaultMaxSenses is how many senses Summarize keeps.
const DefaultMaxSenses = 3

// Summarize turns matched entries into a one-line tooltip such as
// "いぬ: dog; hound (n)". Only the first entry is used, and at most
// maxSenses senses.
func Summarize(entries []JMdictEntry, maxSenses int) string {
	if len(entries) == 0 {
		return ""
	}
	if maxSenses <= 0 {
		maxSenses = DefaultMaxSenses
	}
	e := entries[0]

	var senses []string
	var pos []string
	seenPOS := map[string]bool{}
	for _, s := range e.Sense {
		if len(senses) == maxSenses {
			break
		}
		var glosses []string
		for _, g := range s.Gloss {
			if g.Lang != "" && g.Lang != "eng" {
				continue
			}
			glosses = append(glosses, g.Text)
		}
		if len(glosses) == 0 {
			continue
		}
		senses = append(senses, strings.Join(glosses, ", "))
		for _, p := range s.PartOfSpeech {
			if !seenPOS[p] {
				seenPOS[p] = true
				pos = append(pos, p)
			}
		}
	}
	if len(senses) == 0 {
		return ""
	}

	var b strings.Builder
	if r := primaryReading(e); r != "" {
		b.WriteString(r)
		b.WriteString(": ")
	}
	b.WriteString(strings.Join(senses, "; "))
	if len(pos) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(pos, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// primaryReading prefers a common kana reading.
func primaryReading(e JMdictEntry) string {
	for _, k := range e.Kana {
		if k.Common {
			return ToHiragana(k.Text)
		}
	}
	if len(e.Kana) > 0 {
		return ToHiragana(e.Kana[0].Text)
	}
	return ""
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
