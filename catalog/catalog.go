package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Kind distinguishes standalone movies from multi-episode series.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Valid reports whether k is one of the two supported kinds.
func (k Kind) Valid() bool { return k == KindMovie || k == KindSeries }

// Category is an immutable taxonomy tag, grouped by type
// ("date", "language" or "category").
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Video is a catalog entry. Public submissions always start unapproved;
// only the moderation workflow flips Approved, and only the series sync
// writes Seasons.
type Video struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Kind        Kind       `json:"kind"`
	Seasons     *int       `json:"seasons,omitempty"`
	Approved    bool       `json:"approved"`
	CreatedAt   time.Time  `json:"created_at"`
	Categories  []Category `json:"categories,omitempty"`
}

// Episode identity is (video, season, episode); the sync upserts on that key.
type Episode struct {
	ID      int64  `json:"id"`
	VideoID int64  `json:"video_id"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title"`
}

// Link is a streaming location for a video (or one of its episodes when the
// video is a series). Public submissions always start unapproved.
type Link struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Service    string `json:"service"`
	Quality    string `json:"quality"`
	LanguageID *int64 `json:"language_id,omitempty"`
	VideoID    int64  `json:"video_id"`
	EpisodeID  *int64 `json:"episode_id,omitempty"`
	Approved   bool   `json:"approved"`
}

// Filter narrows ListVideos results. Title is a substring match; CategoryName
// restricts to videos tagged with that category.
type Filter struct {
	Title        string
	CategoryName string
	Limit        int
	Offset       int
}

const videoColumns = `id, name, description, image_url, kind, seasons, approved, COALESCE(created_at, to_timestamp(0))`

func scanVideo(row interface{ Scan(...any) error }) (Video, error) {
	var v Video
	var seasons sql.NullInt64
	if err := row.Scan(&v.ID, &v.Name, &v.Description, &v.ImageURL, &v.Kind, &seasons, &v.Approved, &v.CreatedAt); err != nil {
		return Video{}, err
	}
	if seasons.Valid {
		n := int(seasons.Int64)
		v.Seasons = &n
	}
	return v, nil
}

// ListVideos returns videos newest-id-first. Only approved rows are returned,
// with one deliberate exception inherited from the site's original behavior:
// a title search matches unapproved rows too.
func ListVideos(ctx context.Context, db *sql.DB, f Filter) ([]Video, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		query string
		args  []any
	)
	switch {
	case f.Title != "":
		query = `SELECT ` + videoColumns + ` FROM videos
			WHERE name ILIKE '%' || $1 || '%'
			ORDER BY id DESC LIMIT $2 OFFSET $3`
		args = []any{f.Title, limit, offset}
	case f.CategoryName != "":
		query = `SELECT ` + videoColumns + ` FROM videos
			WHERE approved = TRUE AND id IN (
				SELECT vc.video_id FROM video_categories vc
				JOIN categories c ON c.id = vc.category_id
				WHERE c.name = $1)
			ORDER BY id DESC LIMIT $2 OFFSET $3`
		args = []any{f.CategoryName, limit, offset}
	default:
		query = `SELECT ` + videoColumns + ` FROM videos
			WHERE approved = TRUE
			ORDER BY id DESC LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	list := make([]Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// GetVideo loads a single video with its categories.
func GetVideo(ctx context.Context, db *sql.DB, id int64) (*Video, error) {
	row := db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id=$1`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "video", ID: id}
	}
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT c.id, c.name, c.type FROM categories c
		JOIN video_categories vc ON vc.category_id = c.id
		WHERE vc.video_id = $1 ORDER BY c.type, c.name`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		v.Categories = append(v.Categories, c)
	}
	return &v, rows.Err()
}

// ListEpisodes returns the known episodes of a video ordered by (season, episode).
func ListEpisodes(ctx context.Context, db *sql.DB, videoID int64) ([]Episode, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, video_id, season, episode, title FROM episodes
		WHERE video_id=$1 ORDER BY season, episode`, videoID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	list := make([]Episode, 0)
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.VideoID, &e.Season, &e.Episode, &e.Title); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// FindEpisode resolves an episode by its natural key.
func FindEpisode(ctx context.Context, db *sql.DB, videoID int64, season, episode int) (*Episode, error) {
	var e Episode
	err := db.QueryRowContext(ctx, `
		SELECT id, video_id, season, episode, title FROM episodes
		WHERE video_id=$1 AND season=$2 AND episode=$3`, videoID, season, episode).
		Scan(&e.ID, &e.VideoID, &e.Season, &e.Episode, &e.Title)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "episode", ID: videoID}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListApprovedLinks returns the approved links of a video; when episodeID is
// non-nil only links attached to that episode are returned.
func ListApprovedLinks(ctx context.Context, db *sql.DB, videoID int64, episodeID *int64) ([]Link, error) {
	query := `SELECT id, url, service, quality, language_id, video_id, episode_id, approved
		FROM links WHERE video_id=$1 AND approved=TRUE`
	args := []any{videoID}
	if episodeID != nil {
		query += ` AND episode_id=$2`
		args = append(args, *episodeID)
	}
	query += ` ORDER BY id`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	list := make([]Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanLink(row interface{ Scan(...any) error }) (Link, error) {
	var l Link
	var lang, ep sql.NullInt64
	if err := row.Scan(&l.ID, &l.URL, &l.Service, &l.Quality, &lang, &l.VideoID, &ep, &l.Approved); err != nil {
		return Link{}, err
	}
	if lang.Valid {
		l.LanguageID = &lang.Int64
	}
	if ep.Valid {
		l.EpisodeID = &ep.Int64
	}
	return l, nil
}

// ListCategories returns taxonomy tags, optionally restricted to one type.
func ListCategories(ctx context.Context, db *sql.DB, ctype string) ([]Category, error) {
	query := `SELECT id, name, type FROM categories`
	args := []any{}
	if ctype != "" {
		query += ` WHERE type=$1`
		args = append(args, ctype)
	}
	query += ` ORDER BY type, name`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	list := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// lookupCategory resolves a category by name, optionally requiring a type.
func lookupCategory(ctx context.Context, q queryer, name, ctype string) (int64, error) {
	var id int64
	var err error
	if ctype != "" {
		err = q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name=$1 AND type=$2`, name, ctype).Scan(&id)
	} else {
		err = q.QueryRowContext(ctx, `SELECT id FROM categories WHERE name=$1`, name).Scan(&id)
	}
	if err == sql.ErrNoRows {
		if ctype != "" {
			return 0, invalidf("unknown %s category %q", ctype, name)
		}
		return 0, invalidf("unknown category %q", name)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup category %q: %w", name, err)
	}
	return id, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
