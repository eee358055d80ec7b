// Package episodate contains a minimal client for the episodate.com show API,
// used to refresh series episode lists.
package episodate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ivall/sifo/catalog"
)

// DefaultBaseURL is the public episodate API root.
const DefaultBaseURL = "https://www.episodate.com/api"

// Client fetches show details from episodate. The zero value uses the public
// API and http.DefaultClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

// showResponse mirrors the parts of the episodate payload the sync reads.
type showResponse struct {
	TVShow *struct {
		Episodes []struct {
			Season  int    `json:"season"`
			Episode int    `json:"episode"`
			Name    string `json:"name"`
		} `json:"episodes"`
	} `json:"tvShow"`
}

// FetchEpisodes retrieves the episode list for a show slug. Transport errors,
// non-2xx responses and unexpected payload shapes all come back as
// *catalog.FetchError.
func (c *Client) FetchEpisodes(ctx context.Context, slug string) ([]catalog.FeedEpisode, error) {
	u := c.base() + "/show-details?q=" + url.QueryEscape(slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &catalog.FetchError{URL: u, Reason: "bad request", Err: err}
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, &catalog.FetchError{URL: u, Reason: "request failed", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &catalog.FetchError{URL: u, Reason: "status " + resp.Status}
	}

	var body showResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &catalog.FetchError{URL: u, Reason: "malformed response", Err: err}
	}
	if body.TVShow == nil {
		return nil, &catalog.FetchError{URL: u, Reason: "missing tvShow in response"}
	}

	episodes := make([]catalog.FeedEpisode, 0, len(body.TVShow.Episodes))
	for _, e := range body.TVShow.Episodes {
		episodes = append(episodes, catalog.FeedEpisode{
			Season:  e.Season,
			Episode: e.Episode,
			Title:   e.Name,
		})
	}
	return episodes, nil
}
