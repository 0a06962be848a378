package flashcard

import (
	"math/rand/v2"
	"testing"

	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeight(t *testing.T) {
	tests := map[highlight.Level]int{0: 0, 1: 1, 2: 4, 3: 8, 4: 10, 5: 0, 6: 0}
	for level, want := range tests {
		assert.Equal(t, want, Weight(level), "level %d", level)
	}
}

func TestPickErrors(t *testing.T) {
	_, err := Pick(nil, "", nil)
	assert.ErrorIs(t, err, ErrNoWords)

	words := highlight.WordList{
		"a": {ID: "a", Word: "apple", Level: 5, Language: "en"},
		"b": {ID: "b", Word: "犬", Level: 2, Language: "ja"},
	}
	_, err = Pick(words, "fr", nil)
	assert.ErrorIs(t, err, ErrNoWords)

	_, err = Pick(words, "en", nil)
	assert.ErrorIs(t, err, ErrNoEligible)
}

func TestPickHonoursLanguage(t *testing.T) {
	words := highlight.WordList{
		"a": {ID: "a", Word: "apple", Level: 4, Language: "en"},
		"b": {ID: "b", Word: "犬", Level: 2, Language: "ja"},
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		w, err := Pick(words, "ja", rng)
		require.NoError(t, err)
		assert.Equal(t, "b", w.ID)
	}
}

func TestPickIsWeighted(t *testing.T) {
	words := highlight.WordList{
		"one":  {ID: "one", Word: "one", Level: 1},
		"four": {ID: "four", Word: "four", Level: 4},
		"five": {ID: "five", Word: "five", Level: 5},
	}
	rng := rand.New(rand.NewPCG(42, 7))
	counts := map[string]int{}
	const draws = 11000
	for range draws {
		w, err := Pick(words, "", rng)
		require.NoError(t, err)
		counts[w.ID]++
	}
	assert.Zero(t, counts["five"])
	// Expected split is 1:10.
	assert.InDelta(t, draws/11, counts["one"], 300)
	assert.InDelta(t, draws*10/11, counts["four"], 300)
}
