package episodate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ivall/sifo/catalog"
)

func TestFetchEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "some-show" {
			t.Errorf("unexpected slug query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tvShow":{"episodes":[
			{"season":1,"episode":1,"name":"Pilot"},
			{"season":2,"episode":3,"name":"Later"}
		]}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	eps, err := c.FetchEpisodes(context.Background(), "some-show")
	if err != nil {
		t.Fatalf("FetchEpisodes failed: %v", err)
	}
	if len(eps) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(eps))
	}
	want := catalog.FeedEpisode{Season: 2, Episode: 3, Title: "Later"}
	if eps[1] != want {
		t.Errorf("got %+v, want %+v", eps[1], want)
	}
}

func TestFetchEpisodesNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if _, err := c.FetchEpisodes(context.Background(), "some-show"); !catalog.IsFetch(err) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestFetchEpisodesMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tvShow": [not json`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if _, err := c.FetchEpisodes(context.Background(), "some-show"); !catalog.IsFetch(err) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestFetchEpisodesMissingShow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if _, err := c.FetchEpisodes(context.Background(), "no-such-show"); !catalog.IsFetch(err) {
		t.Errorf("expected fetch error, got %v", err)
	}
}

func TestFetchEpisodesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTPClient: &http.Client{Timeout: 20 * time.Millisecond}}
	if _, err := c.FetchEpisodes(context.Background(), "slow-show"); !catalog.IsFetch(err) {
		t.Errorf("expected fetch error, got %v", err)
	}
}
