package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ivall/sifo/catalog"
)

// HandleVideosList serves GET /videos with optional q, category, limit and
// offset query parameters.
func (h *Handlers) HandleVideosList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f := catalog.Filter{
		Title:        r.URL.Query().Get("q"),
		CategoryName: r.URL.Query().Get("category"),
		Limit:        parseIntQuery(r, "limit", 50),
		Offset:       parseIntQuery(r, "offset", 0),
	}
	list, err := catalog.ListVideos(r.Context(), h.db, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": list})
}

// HandleVideosDispatcher routes /videos/{id}, /videos/{id}/episodes and
// /videos/{id}/links.
func (h *Handlers) HandleVideosDispatcher(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/videos/")
	parts := strings.Split(rest, "/")
	id, err := parsePathID(parts[0])
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case len(parts) == 1:
		h.handleVideoDetail(w, r, id)
	case len(parts) == 2 && parts[1] == "episodes":
		h.handleVideoEpisodes(w, r, id)
	case len(parts) == 2 && parts[1] == "links":
		h.handleVideoLinks(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) handleVideoDetail(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := catalog.GetVideo(r.Context(), h.db, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) handleVideoEpisodes(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := catalog.GetVideo(r.Context(), h.db, id); err != nil {
		writeError(w, r, err)
		return
	}
	eps, err := catalog.ListEpisodes(r.Context(), h.db, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": eps})
}

func (h *Handlers) handleVideoLinks(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := catalog.GetVideo(r.Context(), h.db, id); err != nil {
		writeError(w, r, err)
		return
	}
	var episodeID *int64
	if v := r.URL.Query().Get("episode_id"); v != "" {
		eid, err := parsePathID(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		episodeID = &eid
	}
	links, err := catalog.ListApprovedLinks(r.Context(), h.db, id, episodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// HandleCategories serves GET /categories with an optional type filter.
func (h *Handlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := catalog.ListCategories(r.Context(), h.db, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}

// requireCaptcha checks the submission token before any database work.
func (h *Handlers) requireCaptcha(w http.ResponseWriter, r *http.Request, token string) bool {
	if h.captcha.Verify(r.Context(), token) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "captcha verification failed"})
	return false
}

// HandleSubmitVideo serves POST /submit/video.
func (h *Handlers) HandleSubmitVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		catalog.VideoSubmission
		CaptchaToken string `json:"captcha_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	if !h.requireCaptcha(w, r, req.CaptchaToken) {
		return
	}
	v, err := catalog.SubmitVideo(r.Context(), h.db, req.VideoSubmission)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleSubmitLink serves POST /submit/link.
func (h *Handlers) HandleSubmitLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		catalog.LinkSubmission
		CaptchaToken string `json:"captcha_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	if !h.requireCaptcha(w, r, req.CaptchaToken) {
		return
	}
	l, err := catalog.SubmitLink(r.Context(), h.db, req.LinkSubmission)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}
