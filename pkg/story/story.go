// Package story computes how much of a text is made of tracked words, broken
// down by level.
package story

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/japaniel/lexilight/pkg/highlight"
)

// Unknown is the distribution key for segments that match no tracked word.
const Unknown = "unknown"

// Keys lists the distribution buckets in display order.
var Keys = []string{"1", "2", "3", "4", "5", Unknown}

// Distribution maps "1".."5" and "unknown" to a rounded percentage.
type Distribution map[string]int

// Segmenter splits text into the units counted by ComputeDistribution.
type Segmenter interface {
	Segment(text string) []string
}

// WhitespaceSegmenter splits on runs of whitespace.
type WhitespaceSegmenter struct{}

func (WhitespaceSegmenter) Segment(text string) []string {
	return strings.Fields(text)
}

// ComputeDistribution segments text and counts each segment under the level
// of the tracked word it equals, ignoring case, or under Unknown. Percentages
// are rounded independently so they need not sum to exactly 100. Text with no
// segments is 100% unknown. A nil segmenter splits on whitespace.
func ComputeDistribution(text string, words highlight.WordList, seg Segmenter) Distribution {
	if seg == nil {
		seg = WhitespaceSegmenter{}
	}
	counts := make(map[string]int, len(Keys))
	segments := seg.Segment(strings.TrimSpace(text))
	if len(segments) == 0 {
		return emptyDistribution()
	}

	idx := highlight.NewWordIndex(words.Ordered())
	for _, s := range segments {
		w, ok := idx.Lookup(highlight.NormalizeText(s))
		if !ok {
			counts[Unknown]++
			continue
		}
		counts[strconv.Itoa(int(w.Level.Effective()))]++
	}

	total := float64(len(segments))
	dist := make(Distribution, len(Keys))
	for _, k := range Keys {
		dist[k] = int(math.Round(float64(counts[k]) / total * 100))
	}
	return dist
}

func emptyDistribution() Distribution {
	dist := make(Distribution, len(Keys))
	for _, k := range Keys {
		dist[k] = 0
	}
	dist[Unknown] = 100
	return dist
}

// Format renders a distribution on one line, e.g.
// "Level 1: 20%, Level 2: 0%, ..., Unknown: 40%". A nil distribution is "N/A".
func Format(dist Distribution) string {
	if dist == nil {
		return "N/A"
	}
	parts := make([]string, 0, len(Keys))
	for _, k := range Keys {
		label := "Level " + k
		if k == Unknown {
			label = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("%s: %d%%", label, dist[k]))
	}
	return strings.Join(parts, ", ")
}

// JSON encodes the distribution for storage.
func (d Distribution) JSON() json.RawMessage {
	b, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// ParseDistribution decodes a stored distribution. Empty input yields nil.
func ParseDistribution(raw json.RawMessage) (Distribution, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d Distribution
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode distribution: %w", err)
	}
	return d, nil
}
