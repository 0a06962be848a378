package api

import (
	"errors"
	"net/http"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/flashcard"
)

// NextFlashcard handles GET /api/v1/flashcards/next?language=
func (h *Handler) NextFlashcard(w http.ResponseWriter, r *http.Request) {
	words, err := db.LoadWordList(h.DB, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load word list")
		return
	}
	card, err := flashcard.Pick(words, r.URL.Query().Get("language"), h.Rand)
	switch {
	case errors.Is(err, flashcard.ErrNoWords), errors.Is(err, flashcard.ErrNoEligible):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, card)
}
