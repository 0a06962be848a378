package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/japaniel/lexilight/pkg/db"
	"github.com/japaniel/lexilight/pkg/story"
)

// StoryRequest is the body of story create and update requests
type StoryRequest struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// StoryResponse adds the formatted distribution to a stored story
type StoryResponse struct {
	db.Story
	Summary string `json:"summary"`
}

func storyResponse(s db.Story) StoryResponse {
	dist, _ := story.ParseDistribution(s.Distribution)
	return StoryResponse{Story: s, Summary: story.Format(dist)}
}

// ListStories handles GET /api/v1/stories
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := db.ListStories(h.DB)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stories")
		return
	}
	out := make([]StoryResponse, 0, len(stories))
	for _, s := range stories {
		out = append(out, storyResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetStory handles GET /api/v1/stories/{id}
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	s, err := db.GetStory(h.DB, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "story")
		return
	}
	writeJSON(w, http.StatusOK, storyResponse(s))
}

// CreateStory handles POST /api/v1/stories
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	s, err := story.Save(h.DB, db.Story{Title: req.Title, Language: req.Language, Content: req.Content}, h.Segmenters)
	if err != nil {
		writeStoreError(w, err, "story")
		return
	}
	writeJSON(w, http.StatusCreated, storyResponse(s))
}

// UpdateStory handles PUT /api/v1/stories/{id}. The distribution is
// recomputed against the current word list.
func (h *Handler) UpdateStory(w http.ResponseWriter, r *http.Request) {
	var req StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	s, err := story.Save(h.DB, db.Story{
		ID:       chi.URLParam(r, "id"),
		Title:    req.Title,
		Language: req.Language,
		Content:  req.Content,
	}, h.Segmenters)
	if err != nil {
		writeStoreError(w, err, "story")
		return
	}
	writeJSON(w, http.StatusOK, storyResponse(s))
}

// DeleteStory handles DELETE /api/v1/stories/{id}
func (h *Handler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := db.DeleteStory(h.DB, chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
