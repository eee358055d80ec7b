package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ivall/sifo/catalog"
	"github.com/ivall/sifo/db"
)

// HandleAdminQueue serves GET /admin/queue, the pending submissions list.
func (h *Handlers) HandleAdminQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q, err := catalog.ListPending(r.Context(), h.db)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleAdminVideosDispatcher routes POST /admin/videos/{id}/review and
// POST /admin/videos/{id}/sync.
func (h *Handlers) HandleAdminVideosDispatcher(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/videos/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	id, err := parsePathID(parts[0])
	if err != nil {
		writeError(w, r, err)
		return
	}
	switch parts[1] {
	case "review":
		h.handleVideoReview(w, r, id)
	case "sync":
		h.handleVideoSync(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) handleVideoReview(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Action catalog.Action      `json:"action"`
		Edits  *catalog.VideoEdits `json:"edits,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	if err := catalog.ReviewVideo(r.Context(), h.db, id, req.Action, req.Edits); err != nil {
		writeError(w, r, err)
		return
	}
	if s := sessionFrom(r.Context()); s != nil {
		slog.Info("moderation verdict", slog.Int64("video_id", id), slog.String("action", string(req.Action)), slog.Int64("moderator", s.UserID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"video_id": id, "action": req.Action})
}

func (h *Handlers) handleVideoSync(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	res, err := catalog.SyncSeries(r.Context(), h.db, h.fetcher, id, req.Slug, h.cfg.SyncMaxEpisodes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAdminLinksDispatcher routes POST /admin/links/{id}/review.
func (h *Handlers) HandleAdminLinksDispatcher(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/links/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "review" {
		http.NotFound(w, r)
		return
	}
	id, err := parsePathID(parts[0])
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Action catalog.Action     `json:"action"`
		Edits  *catalog.LinkEdits `json:"edits,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	if err := catalog.ReviewLink(r.Context(), h.db, id, req.Action, req.Edits); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"link_id": id, "action": req.Action})
}

// Runtime config keys that may be read or written through /admin/config.
// Everything else in kv stays internal.
var adminConfigKeys = map[string]bool{
	"cfg:announcement":     true,
	"cfg:submissions":      true,
	"job_series_sync_last": true,
}

// HandleAdminConfig serves GET and PUT /admin/config, a small kv-backed
// runtime settings surface.
func (h *Handlers) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := make(map[string]string, len(adminConfigKeys))
		for key := range adminConfigKeys {
			val, err := db.GetKV(r.Context(), h.db, key)
			if err != nil {
				writeError(w, r, err)
				return
			}
			out[key] = val
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPut:
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
			return
		}
		for key, val := range req {
			if !adminConfigKeys[key] || !strings.HasPrefix(key, "cfg:") {
				writeError(w, r, &catalog.ValidationError{Msg: "unknown config key " + key})
				return
			}
			if err := db.SetKV(r.Context(), h.db, key, val); err != nil {
				writeError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
