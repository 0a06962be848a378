// Package api serves the word store, highlighting and live page sessions over HTTP.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/dictionary"
	"github.com/japaniel/lexilight/pkg/events"
	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/japaniel/lexilight/pkg/metrics"
	"github.com/japaniel/lexilight/pkg/reader"
	"github.com/japaniel/lexilight/pkg/story"
)

// Handler contains all HTTP handlers
type Handler struct {
	DB          *sql.DB
	Highlighter *highlight.Highlighter
	Fetcher     *reader.Fetcher
	Sessions    *SessionRegistry

	// Optional collaborators; nil disables the feature.
	Segmenters story.Segmenters
	Dictionary *dictionary.Importer
	Publisher  *events.Publisher
	Metrics    *metrics.Recorder
	Logger     *log.Logger

	// Selector picks the content root of submitted pages. Empty means <body>.
	Selector string
	// Rand drives flashcard draws. nil uses the global source.
	Rand *rand.Rand
}

// NewHandler creates a handler with a default fetcher and session registry.
func NewHandler(conn *sql.DB, hl *highlight.Highlighter) *Handler {
	if hl == nil {
		hl = highlight.New()
	}
	return &Handler{
		DB:          conn,
		Highlighter: hl,
		Fetcher:     reader.NewFetcher(0, "", 0),
		Sessions:    NewSessionRegistry(hl, 0, ""),
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeStoreError maps store errors to statuses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, db.ErrEmptyWord), errors.Is(err, db.ErrInvalidLevel):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrDuplicateTitle):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to access "+what)
	}
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok", "sessions": h.Sessions.Len()}
	if err := h.DB.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "database unavailable"
	}
	writeJSON(w, status, body)
}

// wordsChanged re-delivers the stored list to open sessions and publishes it.
// Failures are logged; the edit itself already succeeded.
func (h *Handler) wordsChanged(ctx context.Context) {
	words, err := db.LoadWordList(h.DB, "")
	if err != nil {
		h.logf("api: reload word list: %v", err)
		return
	}
	h.Sessions.DeliverAll(words)
	if h.Publisher != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := h.Publisher.PublishWords(ctx, words); err != nil {
			h.logf("api: publish word list: %v", err)
		}
	}
}

// WithMetrics wires m into the highlighter, the session count and /metrics.
func (h *Handler) WithMetrics(m *metrics.Recorder) *Handler {
	h.Metrics = m
	h.Highlighter.Recorder = m
	h.Sessions.OnOpen = m.SessionOpened
	h.Sessions.OnClose = m.SessionClosed
	return h
}
