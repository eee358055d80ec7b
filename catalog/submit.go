package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ivall/sifo/telemetry"
)

// VideoSubmission is a public request to add a video to the catalog. The
// stored row is unapproved until a moderator reviews it. Date names a
// date-type category and is tagged alongside the selected categories.
type VideoSubmission struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Kind        Kind     `json:"kind"`
	Date        string   `json:"date"`
	Categories  []string `json:"categories"`
}

// LinkSubmission is a public request to add a streaming link. For series
// targets Season/Episode select the episode the link belongs to.
type LinkSubmission struct {
	VideoID  int64  `json:"video_id"`
	URL      string `json:"url"`
	Service  string `json:"service"`
	Quality  string `json:"quality"`
	Language string `json:"language"`
	Season   *int   `json:"season,omitempty"`
	Episode  *int   `json:"episode,omitempty"`
}

func (s *VideoSubmission) validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	s.ImageURL = strings.TrimSpace(s.ImageURL)
	s.Date = strings.TrimSpace(s.Date)
	if s.Name == "" {
		return invalidf("name is required")
	}
	if len(s.Name) > 300 {
		return invalidf("name exceeds 300 characters")
	}
	if s.Description == "" {
		return invalidf("description is required")
	}
	if !s.Kind.Valid() {
		return invalidf("kind must be %q or %q", KindMovie, KindSeries)
	}
	if s.ImageURL == "" {
		return invalidf("image_url is required")
	}
	if _, err := url.ParseRequestURI(s.ImageURL); err != nil {
		return invalidf("image_url is not a valid URL")
	}
	if s.Date == "" {
		return invalidf("date is required")
	}
	return nil
}

// SubmitVideo stores an unapproved video together with its category tags.
// The date tag is mandatory and joins whatever categories were selected.
// Category names must already exist; unknown names reject the submission.
func SubmitVideo(ctx context.Context, db *sql.DB, sub VideoSubmission) (*Video, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submit tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("submit rollback failed", slog.Any("err", err))
		}
	}()

	var v Video
	v.Name = sub.Name
	v.Description = sub.Description
	v.ImageURL = sub.ImageURL
	v.Kind = sub.Kind
	err = tx.QueryRowContext(ctx, `
		INSERT INTO videos (name, description, image_url, kind, approved)
		VALUES ($1,$2,$3,$4,FALSE)
		RETURNING id, created_at`,
		sub.Name, sub.Description, sub.ImageURL, string(sub.Kind)).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	dateID, err := lookupCategory(ctx, tx, sub.Date, "date")
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO video_categories (video_id, category_id)
		VALUES ($1,$2) ON CONFLICT DO NOTHING`, v.ID, dateID); err != nil {
		return nil, fmt.Errorf("tag video: %w", err)
	}

	for _, name := range sub.Categories {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		catID, err := lookupCategory(ctx, tx, name, "")
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO video_categories (video_id, category_id)
			VALUES ($1,$2) ON CONFLICT DO NOTHING`, v.ID, catID); err != nil {
			return nil, fmt.Errorf("tag video: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submit tx: %w", err)
	}
	telemetry.CountSubmission("video")
	slog.Info("video submitted", slog.Int64("video_id", v.ID), slog.String("name", v.Name))
	return &v, nil
}

func (s *LinkSubmission) validate() error {
	s.URL = strings.TrimSpace(s.URL)
	s.Service = strings.TrimSpace(s.Service)
	if s.VideoID <= 0 {
		return invalidf("video_id is required")
	}
	if s.URL == "" {
		return invalidf("url is required")
	}
	u, err := url.ParseRequestURI(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return invalidf("url must be a valid http(s) URL")
	}
	if s.Service == "" {
		return invalidf("service is required")
	}
	if (s.Season == nil) != (s.Episode == nil) {
		return invalidf("season and episode must be provided together")
	}
	return nil
}

// SubmitLink stores an unapproved link for a video. Series links must name an
// existing (season, episode) pair of the target video; movie links must not
// carry an episode reference.
func SubmitLink(ctx context.Context, db *sql.DB, sub LinkSubmission) (*Link, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}

	video, err := GetVideo(ctx, db, sub.VideoID)
	if err != nil {
		return nil, err
	}

	var episodeID *int64
	switch video.Kind {
	case KindSeries:
		if sub.Season == nil {
			return nil, invalidf("season and episode are required for series links")
		}
		ep, err := FindEpisode(ctx, db, video.ID, *sub.Season, *sub.Episode)
		if err != nil {
			if IsNotFound(err) {
				return nil, invalidf("episode S%dE%d does not exist for video %d", *sub.Season, *sub.Episode, video.ID)
			}
			return nil, err
		}
		episodeID = &ep.ID
	default:
		if sub.Season != nil {
			return nil, invalidf("movie links cannot reference an episode")
		}
	}

	var languageID *int64
	if sub.Language != "" {
		id, err := lookupCategory(ctx, db, sub.Language, "language")
		if err != nil {
			return nil, err
		}
		languageID = &id
	}

	l := Link{
		URL:        sub.URL,
		Service:    sub.Service,
		Quality:    sub.Quality,
		LanguageID: languageID,
		VideoID:    video.ID,
		EpisodeID:  episodeID,
	}
	err = db.QueryRowContext(ctx, `
		INSERT INTO links (url, service, quality, language_id, video_id, episode_id, approved)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE)
		RETURNING id`,
		l.URL, l.Service, l.Quality, l.LanguageID, l.VideoID, l.EpisodeID).Scan(&l.ID)
	if err != nil {
		return nil, fmt.Errorf("insert link: %w", err)
	}
	telemetry.CountSubmission("link")
	slog.Info("link submitted", slog.Int64("link_id", l.ID), slog.Int64("video_id", l.VideoID), slog.String("service", l.Service))
	return &l, nil
}
