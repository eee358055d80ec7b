package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// FeedShowResponse mirrors the episode feed's JSON envelope.
type FeedShowResponse struct {
	TVShow struct {
		Episodes []FeedEpisodeJSON `json:"episodes"`
	} `json:"tvShow"`
}

// FeedEpisodeJSON is one episode entry in a fake feed payload.
type FeedEpisodeJSON struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Name    string `json:"name"`
}

// NewFeedServer runs a fake episode feed that serves the given episodes for
// any show slug. Closed automatically at test end.
func NewFeedServer(t *testing.T, episodes []FeedEpisodeJSON) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp FeedShowResponse
		resp.TVShow.Episodes = episodes
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode feed response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// NewCaptchaServer runs a fake siteverify endpoint that reports success for
// exactly the given token. Closed automatically at test end.
func NewCaptchaServer(t *testing.T, validToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		ok := r.PostFormValue("response") == validToken && r.PostFormValue("secret") != ""
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"success": ok}); err != nil {
			t.Errorf("failed to encode captcha response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
