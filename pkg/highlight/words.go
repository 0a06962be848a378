package highlight

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	// MinLevel and MaxLevel bound the difficulty ranks a word can carry.
	MinLevel = 1
	MaxLevel = 5
	// DefaultLevel is used for words whose level is missing or invalid.
	DefaultLevel = 1
)

// Level is a difficulty rank. It decodes from either a JSON number or a
// numeric string; anything else decodes to 0 (unknown).
type Level int

// UnmarshalJSON accepts 3, "3" and null. Malformed values become 0 rather than
// failing the whole word list.
func (l *Level) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*l = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*l = 0
		return nil
	}
	*l = Level(int(f))
	return nil
}

// Valid reports whether l is within MinLevel..MaxLevel.
func (l Level) Valid() bool { return l >= MinLevel && l <= MaxLevel }

// Effective returns the level used for presentation.
func (l Level) Effective() Level {
	if !l.Valid() {
		return DefaultLevel
	}
	return l
}

// TrackedWord is a word the user wants highlighted.
type TrackedWord struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	Level      Level  `json:"level"`
	Language   string `json:"language,omitempty"`
	Definition string `json:"definition,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Text returns the word with underscores normalized to spaces.
func (w TrackedWord) Text() string {
	return NormalizeText(w.Word)
}

// Participates reports whether the word has matchable text.
func (w TrackedWord) Participates() bool {
	return strings.TrimSpace(w.Text()) != ""
}

// NormalizeText replaces underscores with spaces.
func NormalizeText(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// WordList is the id-keyed collection delivered by the word repository.
type WordList map[string]TrackedWord

// Ordered returns the words sorted by ID, which is the order used for
// last-write-wins resolution in the index.
func (wl WordList) Ordered() []TrackedWord {
	ids := make([]string, 0, len(wl))
	for id := range wl {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]TrackedWord, 0, len(ids))
	for _, id := range ids {
		w := wl[id]
		if w.ID == "" {
			w.ID = id
		}
		out = append(out, w)
	}
	return out
}

// DecodeWordList parses a JSON object of id -> word. Entries that are not
// objects, or whose word text is missing, are dropped silently.
func DecodeWordList(data []byte) (WordList, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode word list: %w", err)
	}
	out := make(WordList, len(raw))
	for id, msg := range raw {
		var w TrackedWord
		if err := json.Unmarshal(msg, &w); err != nil {
			continue
		}
		if !w.Participates() {
			continue
		}
		w.ID = id
		out[id] = w
	}
	return out, nil
}

// WordIndex maps the folded normalized text to its word.
type WordIndex map[string]TrackedWord

// NewWordIndex builds an index from words in order; later entries win on
// case-insensitive collisions.
func NewWordIndex(words []TrackedWord) WordIndex {
	idx := make(WordIndex, len(words))
	for _, w := range words {
		if !w.Participates() {
			continue
		}
		idx[FoldKey(w.Text())] = w
	}
	return idx
}

// Lookup finds the word for a matched substring.
func (idx WordIndex) Lookup(matched string) (TrackedWord, bool) {
	w, ok := idx[FoldKey(matched)]
	return w, ok
}

// FoldKey maps s to a form shared by every string a case-insensitive regexp
// would treat as equal: each rune becomes the smallest rune of its simple
// case-folding orbit. strings.ToLower is not stable under that relation
// ("İ", final sigma, long s).
func FoldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(foldRune(r))
	}
	return b.String()
}

func foldRune(r rune) rune {
	lo := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lo {
			lo = f
		}
	}
	return lo
}
