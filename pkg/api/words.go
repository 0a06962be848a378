package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/japaniel/lexilight/pkg/db"
)

// WordRequest is the body of word create and update requests
type WordRequest struct {
	Word       string `json:"word"`
	Level      int    `json:"level"`
	Language   string `json:"language"`
	Definition string `json:"definition"`
	Notes      string `json:"notes"`
}

// LevelRequest is the body of level updates
type LevelRequest struct {
	Level int `json:"level"`
}

// ListWords handles GET /api/v1/words
func (h *Handler) ListWords(w http.ResponseWriter, r *http.Request) {
	words, err := db.ListWords(h.DB, wordFilter(r.URL.Query()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list words")
		return
	}
	if words == nil {
		words = []db.Word{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"words": words,
		"total": len(words),
	})
}

// wordFilter reads search, language, level, missing_definition, limit and
// offset from the query string.
func wordFilter(q url.Values) db.WordFilter {
	filter := db.WordFilter{
		Search:            q.Get("search"),
		Language:          q.Get("language"),
		MissingDefinition: q.Get("missing_definition") == "1",
	}
	if n, err := strconv.Atoi(q.Get("level")); err == nil {
		filter.Level = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = n
	}
	return filter
}

// ExportWords handles GET /api/v1/words/export. It takes the same filters as
// ListWords and answers with a CSV attachment.
func (h *Handler) ExportWords(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := db.ExportCSV(h.DB, &buf, wordFilter(r.URL.Query())); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export words")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="words.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// maxImportSize bounds CSV uploads.
const maxImportSize = 10 << 20

// ImportWords handles POST /api/v1/words/import. The body is the CSV itself,
// or a multipart form with the CSV in the "file" field.
func (h *Handler) ImportWords(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := db.ImportCSV(h.DB, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if result.Changed() {
		h.wordsChanged(r.Context())
	}
	writeJSON(w, http.StatusOK, result)
}

// GetWordList handles GET /api/v1/words/list, the id-keyed list that live
// pages and the events subject carry.
func (h *Handler) GetWordList(w http.ResponseWriter, r *http.Request) {
	words, err := db.LoadWordList(h.DB, r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load word list")
		return
	}
	writeJSON(w, http.StatusOK, words)
}

// GetWord handles GET /api/v1/words/{id}
func (h *Handler) GetWord(w http.ResponseWriter, r *http.Request) {
	word, err := db.GetWord(h.DB, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "word")
		return
	}
	writeJSON(w, http.StatusOK, word)
}

// CreateWord handles POST /api/v1/words. A missing definition is filled from
// the dictionary when one is loaded.
func (h *Handler) CreateWord(w http.ResponseWriter, r *http.Request) {
	var req WordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Definition == "" && h.Dictionary != nil {
		req.Definition = h.Dictionary.Define(req.Word)
	}

	word, err := db.CreateWord(h.DB, db.Word{
		Word:       req.Word,
		Level:      req.Level,
		Language:   req.Language,
		Definition: req.Definition,
		Notes:      req.Notes,
	})
	if err != nil {
		writeStoreError(w, err, "word")
		return
	}
	h.wordsChanged(r.Context())
	writeJSON(w, http.StatusCreated, word)
}

// UpdateWord handles PUT /api/v1/words/{id}
func (h *Handler) UpdateWord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req WordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := db.UpdateWord(h.DB, db.Word{
		ID:         id,
		Word:       req.Word,
		Level:      req.Level,
		Language:   req.Language,
		Definition: req.Definition,
		Notes:      req.Notes,
	})
	if err != nil {
		writeStoreError(w, err, "word")
		return
	}
	word, err := db.GetWord(h.DB, id)
	if err != nil {
		writeStoreError(w, err, "word")
		return
	}
	h.wordsChanged(r.Context())
	writeJSON(w, http.StatusOK, word)
}

// UpdateWordLevel handles PUT /api/v1/words/{id}/level and the flashcard
// equivalent.
func (h *Handler) UpdateWordLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req LevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := db.UpdateWordLevel(h.DB, id, req.Level); err != nil {
		writeStoreError(w, err, "word")
		return
	}
	word, err := db.GetWord(h.DB, id)
	if err != nil {
		writeStoreError(w, err, "word")
		return
	}
	h.wordsChanged(r.Context())
	writeJSON(w, http.StatusOK, word)
}

// DeleteWord handles DELETE /api/v1/words/{id}
func (h *Handler) DeleteWord(w http.ResponseWriter, r *http.Request) {
	if err := db.DeleteWord(h.DB, chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "word")
		return
	}
	h.wordsChanged(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetSightings handles GET /api/v1/words/{id}/sightings
func (h *Handler) GetSightings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := db.GetWord(h.DB, id); err != nil {
		writeStoreError(w, err, "word")
		return
	}
	sightings, err := db.GetSightings(h.DB, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sightings")
		return
	}
	if sightings == nil {
		sightings = []db.Sighting{}
	}
	writeJSON(w, http.StatusOK, sightings)
}
