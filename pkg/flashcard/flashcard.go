// Package flashcard picks words for review, favouring the ones still being learned.
package flashcard

import (
	"errors"
	"math/rand/v2"

	"github.com/japaniel/lexilight/pkg/highlight"
)

var (
	// ErrNoWords means no word matched the language filter.
	ErrNoWords = errors.New("flashcard: no words available")
	// ErrNoEligible means words exist but all of them weigh zero.
	ErrNoEligible = errors.New("flashcard: no words eligible for review")
)

// Weight is how many tickets a word at level l gets in the draw. Level 5 and
// invalid levels are never drawn.
func Weight(l highlight.Level) int {
	switch l {
	case 1:
		return 1
	case 2:
		return 4
	case 3:
		return 8
	case 4:
		return 10
	default:
		return 0
	}
}

// Pick draws one word with probability proportional to its Weight. language
// filters the candidates when non-empty. A nil rng uses the global source.
func Pick(words highlight.WordList, language string, rng *rand.Rand) (highlight.TrackedWord, error) {
	var candidates []highlight.TrackedWord
	for _, w := range words.Ordered() {
		if language != "" && w.Language != language {
			continue
		}
		candidates = append(candidates, w)
	}
	if len(candidates) == 0 {
		return highlight.TrackedWord{}, ErrNoWords
	}

	total := 0
	for _, w := range candidates {
		total += Weight(w.Level)
	}
	if total == 0 {
		return highlight.TrackedWord{}, ErrNoEligible
	}

	var n int
	if rng != nil {
		n = rng.IntN(total)
	} else {
		n = rand.IntN(total)
	}
	for _, w := range candidates {
		n -= Weight(w.Level)
		if n < 0 {
			return w, nil
		}
	}
	// Unreachable while total is the sum of the weights.
	return candidates[len(candidates)-1], nil
}
