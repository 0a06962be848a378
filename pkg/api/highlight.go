package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/ingest"
)

// HighlightRequest is the body of POST /api/v1/highlight. URL names the page
// for reader mode and sighting records.
type HighlightRequest struct {
	HTML     string `json:"html"`
	URL      string `json:"url"`
	Language string `json:"language"`
	Record   bool   `json:"record"`
}

// HighlightResponse carries the highlighted page as HTML or markdown.
type HighlightResponse struct {
	Title    string         `json:"title,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Markdown string         `json:"markdown,omitempty"`
	Spans    int            `json:"spans"`
	Counts   map[string]int `json:"counts"`
	Recorded int64          `json:"recorded"`
}

type highlightOptions struct {
	readerMode bool
	format     ingest.Format
}

func optionsFrom(r *http.Request) (highlightOptions, error) {
	q := r.URL.Query()
	f, err := ingest.ParseFormat(q.Get("format"))
	return highlightOptions{readerMode: q.Get("reader") == "1", format: f}, err
}

// Highlight handles POST /api/v1/highlight
func (h *Handler) Highlight(w http.ResponseWriter, r *http.Request) {
	opts, err := optionsFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req HighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		writeError(w, http.StatusBadRequest, "html is required")
		return
	}
	if req.Record && req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required to record sightings")
		return
	}
	h.highlightBody(r.Context(), w, []byte(req.HTML), req, opts)
}

// HighlightURL handles POST /api/v1/highlight/url
func (h *Handler) HighlightURL(w http.ResponseWriter, r *http.Request) {
	opts, err := optionsFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req HighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	body, err := h.Fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.highlightBody(r.Context(), w, body, req, opts)
}

func (h *Handler) highlightBody(ctx context.Context, w http.ResponseWriter, body []byte, req HighlightRequest, opts highlightOptions) {
	page, err := ingest.LoadPage(body, req.URL, opts.readerMode)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	words, err := db.LoadWordList(h.DB, req.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load word list")
		return
	}

	ig := ingest.NewIngester(nil, h.Highlighter)
	if req.Record {
		ig.DB = h.DB
	}
	if !opts.readerMode {
		ig.Selector = h.Selector
	}
	ig.Logger = h.Logger
	var result ingest.PageResult
	ig.OnPage = func(pr ingest.PageResult) error {
		result = pr
		return nil
	}
	sum, err := ig.Ingest(ctx, []ingest.Page{page}, words)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := HighlightResponse{
		Title:    page.Title,
		Spans:    result.Result.Spans,
		Counts:   result.Result.Counts,
		Recorded: sum.Recorded,
	}
	if resp.Counts == nil {
		resp.Counts = map[string]int{}
	}
	var sb strings.Builder
	if err := ingest.Render(&sb, page, opts.format); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if opts.format == ingest.FormatMarkdown {
		resp.Markdown = sb.String()
	} else {
		resp.HTML = sb.String()
	}
	writeJSON(w, http.StatusOK, resp)
}
