package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/go-chi/chi/v5"
	"golang.org/x/net/html"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/highlight"
	"github.com/japaniel/lexilight/pkg/live"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	session  *live.Session
	language string
}

// SessionRegistry tracks live page sessions so word edits reach all of them.
type SessionRegistry struct {
	hl       *highlight.Highlighter
	window   time.Duration
	selector string

	// OnOpen and OnClose observe the session count.
	OnOpen  func()
	OnClose func()

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

// NewSessionRegistry creates a registry whose sessions share hl.
func NewSessionRegistry(hl *highlight.Highlighter, window time.Duration, selector string) *SessionRegistry {
	return &SessionRegistry{
		hl:       hl,
		window:   window,
		selector: selector,
		sessions: make(map[string]sessionEntry),
	}
}

// Open parses page, starts a session on it and delivers words.
func (sr *SessionRegistry) Open(page string, language string, words highlight.WordList) (*live.Session, error) {
	doc, err := live.Parse(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	s := live.NewSession(doc, sr.hl, live.Options{Window: sr.window, Selector: sr.selector})
	s.Start()
	s.Deliver(filterLanguage(words, language))

	sr.mu.Lock()
	sr.sessions[s.ID] = sessionEntry{session: s, language: language}
	sr.mu.Unlock()
	if sr.OnOpen != nil {
		sr.OnOpen()
	}
	return s, nil
}

// Get returns the session with id.
func (sr *SessionRegistry) Get(id string) (*live.Session, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	e, ok := sr.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Close stops and forgets a session.
func (sr *SessionRegistry) Close(id string) error {
	sr.mu.Lock()
	e, ok := sr.sessions[id]
	delete(sr.sessions, id)
	sr.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.session.Close()
	if sr.OnClose != nil {
		sr.OnClose()
	}
	return nil
}

// CloseAll closes every session.
func (sr *SessionRegistry) CloseAll() {
	sr.mu.Lock()
	ids := make([]string, 0, len(sr.sessions))
	for id := range sr.sessions {
		ids = append(ids, id)
	}
	sr.mu.Unlock()
	for _, id := range ids {
		_ = sr.Close(id)
	}
}

// Len returns the number of open sessions.
func (sr *SessionRegistry) Len() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.sessions)
}

// DeliverAll hands words to every session, filtered to its language.
func (sr *SessionRegistry) DeliverAll(words highlight.WordList) {
	sr.mu.Lock()
	entries := make([]sessionEntry, 0, len(sr.sessions))
	for _, e := range sr.sessions {
		entries = append(entries, e)
	}
	sr.mu.Unlock()
	for _, e := range entries {
		e.session.Deliver(filterLanguage(words, e.language))
	}
}

func filterLanguage(words highlight.WordList, language string) highlight.WordList {
	if language == "" {
		return words
	}
	out := make(highlight.WordList, len(words))
	for id, w := range words {
		if w.Language == language {
			out[id] = w
		}
	}
	return out
}

// SessionRequest opens a session on a page
type SessionRequest struct {
	HTML     string `json:"html"`
	Language string `json:"language"`
}

// InsertRequest adds markup to a session's page. Target is a CSS selector for
// the parent; empty means the body.
type InsertRequest struct {
	HTML   string `json:"html"`
	Target string `json:"target"`
}

// SessionResponse describes a session and its current page
type SessionResponse struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// CreateSession handles POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	words, err := db.LoadWordList(h.DB, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load word list")
		return
	}
	s, err := h.Sessions.Open(req.HTML, req.Language, words)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid html")
		return
	}
	s.Flush()
	writeJSON(w, http.StatusCreated, SessionResponse{ID: s.ID, HTML: s.Document().String()})
}

// GetSession handles GET /api/v1/sessions/{id}. Scheduled passes are run
// first unless ?flush=0.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if r.URL.Query().Get("flush") != "0" {
		s.Flush()
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: s.ID, HTML: s.Document().String()})
}

// InsertIntoSession handles POST /api/v1/sessions/{id}/insert. The new
// content is highlighted by the session's next scoped pass.
func (h *Handler) InsertIntoSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var req InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var sel cascadia.Sel
	if req.Target != "" {
		if sel, err = cascadia.Parse(req.Target); err != nil {
			writeError(w, http.StatusBadRequest, "invalid target selector")
			return
		}
	}

	doc := s.Document()
	var parent *html.Node
	var nodes []*html.Node
	var parseErr error
	doc.Do(func(root *html.Node) {
		if sel != nil {
			parent = cascadia.Query(root, sel)
		} else {
			parent = highlight.ContentRoot(root)
		}
		if parent != nil {
			nodes, parseErr = live.ParseFragment(req.HTML, parent)
		}
	})
	if parent == nil {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "invalid html")
		return
	}
	if err := doc.AppendChild(parent, nodes...); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"id": s.ID, "inserted": len(nodes)})
}

// CloseSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
