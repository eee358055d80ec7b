package server

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/ivall/sifo/db"
)

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed system checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"schema", func() error {
			// An empty table is fine; a missing one means migrations have not run.
			var one int
			if err := h.db.QueryRowContext(r.Context(), "SELECT 1 FROM videos LIMIT 1").Scan(&one); err != nil && err != sql.ErrNoRows {
				return err
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus serves GET /status, a small operational snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	var approved, pendingVideos, pendingLinks int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE approved=TRUE").Scan(&approved); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM videos WHERE approved=FALSE").Scan(&pendingVideos); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM links WHERE approved=FALSE").Scan(&pendingLinks); err != nil {
		writeError(w, r, err)
		return
	}
	lastSync, err := db.GetKV(ctx, h.db, "job_series_sync_last")
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"approved_videos": approved,
		"pending_videos":  pendingVideos,
		"pending_links":   pendingLinks,
		"last_sync":       lastSync,
		"captcha_enabled": h.captcha.Enabled(),
	})
}
