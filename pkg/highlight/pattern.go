package highlight

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pattern is a compiled case-insensitive alternation over every tracked word,
// together with the index it was built from.
//
// Go's regexp uses leftmost-first semantics for alternations, so ordering the
// alternatives longest-first makes "green apple" win over "apple" when both
// could match at the same position.
type Pattern struct {
	re    *regexp.Regexp
	index WordIndex
	texts []string
}

// Compile builds a Pattern from words in order. It returns false when no word
// has matchable text, in which case the caller must skip matching entirely.
func Compile(words []TrackedWord) (*Pattern, bool) {
	idx := NewWordIndex(words)
	if len(idx) == 0 {
		return nil, false
	}

	keys := make([]string, 0, len(idx))
	for key := range idx {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})

	// Alternatives keep the casing the word was typed with; (?i) folds the
	// same way the index keys do.
	texts := make([]string, len(keys))
	for i, key := range keys {
		texts[i] = idx[key].Text()
	}

	quoted := make([]string, len(texts))
	for i, t := range texts {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re := regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))

	return &Pattern{re: re, index: idx, texts: texts}, true
}

// Texts returns the alternatives in match-priority order.
func (p *Pattern) Texts() []string {
	out := make([]string, len(p.texts))
	copy(out, p.texts)
	return out
}

// Index returns the word index backing the pattern.
func (p *Pattern) Index() WordIndex { return p.index }

// Segment is one piece of a rewritten text leaf. Word is nil for literal text.
type Segment struct {
	Text string
	Word *TrackedWord
}

// Segments splits text into literal and matched pieces, left to right, with
// non-overlapping matches. It returns nil when nothing in text matches.
// With hug set, whitespace at the edges of a match is kept outside the span.
func (p *Pattern) Segments(text string, hug bool) []Segment {
	locs := p.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var segs []Segment
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start == end {
			continue
		}
		matched := text[start:end]
		w, ok := p.index.Lookup(matched)
		if !ok {
			// the pattern only holds indexed texts; keep the source as-is
			segs = appendLiteral(segs, text[last:end])
			last = end
			continue
		}

		if hug {
			trimmedStart := len(matched) - len(strings.TrimLeftFunc(matched, unicode.IsSpace))
			trimmedEnd := len(strings.TrimRightFunc(matched, unicode.IsSpace))
			if trimmedStart < trimmedEnd {
				start, end = start+trimmedStart, start+trimmedEnd
			}
		}

		segs = appendLiteral(segs, text[last:start])
		word := w
		segs = append(segs, Segment{Text: text[start:end], Word: &word})
		last = end
	}
	segs = appendLiteral(segs, text[last:])
	return segs
}

func appendLiteral(segs []Segment, s string) []Segment {
	if s == "" {
		return segs
	}
	if n := len(segs); n > 0 && segs[n-1].Word == nil {
		segs[n-1].Text += s
		return segs
	}
	return append(segs, Segment{Text: s})
}

// HasSpans reports whether any segment is a match.
func HasSpans(segs []Segment) bool {
	for _, s := range segs {
		if s.Word != nil {
			return true
		}
	}
	return false
}
