package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	dbpkg "github.com/ivall/sifo/db"
	"github.com/ivall/sifo/telemetry"
)

// FeedEpisode is one entry from the external episode feed.
type FeedEpisode struct {
	Season  int
	Episode int
	Title   string
}

// FeedFetcher retrieves the episode list for a series by its feed slug.
// Implementations report all failure modes as *FetchError.
type FeedFetcher interface {
	FetchEpisodes(ctx context.Context, slug string) ([]FeedEpisode, error)
}

// SyncResult summarizes one metadata sync run.
type SyncResult struct {
	VideoID  int64 `json:"video_id"`
	Seasons  int   `json:"seasons"`
	Upserted int   `json:"upserted"`
	Skipped  int   `json:"skipped"`
}

// SyncSeries refreshes a series' episode list from the external feed. Every
// feed entry is upserted on (video, season, episode) and the video's season
// count is overwritten with the highest season seen, lower or higher than
// before. All writes happen in one transaction so a mid-run failure leaves
// the previous state intact. Entries past maxEpisodes are skipped.
func SyncSeries(ctx context.Context, db *sql.DB, fetcher FeedFetcher, videoID int64, slug string, maxEpisodes int) (*SyncResult, error) {
	start := time.Now()
	telemetry.CountSyncRun()
	res, err := syncSeries(ctx, db, fetcher, videoID, slug, maxEpisodes)
	telemetry.ObserveSyncDuration(time.Since(start).Seconds())
	if err != nil {
		telemetry.CountSyncFailure()
		return nil, err
	}
	telemetry.AddSyncEpisodesUpserted(res.Upserted)
	if err := dbpkg.MarkJobRun(ctx, db, "series_sync"); err != nil {
		slog.Warn("failed to record sync timestamp", slog.Any("err", err))
	}
	slog.Info("series synced",
		slog.Int64("video_id", res.VideoID),
		slog.Int("seasons", res.Seasons),
		slog.Int("upserted", res.Upserted),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

func syncSeries(ctx context.Context, db *sql.DB, fetcher FeedFetcher, videoID int64, slug string, maxEpisodes int) (*SyncResult, error) {
	video, err := GetVideo(ctx, db, videoID)
	if err != nil {
		return nil, err
	}
	if video.Kind != KindSeries {
		return nil, &NotFoundError{Entity: "series", ID: videoID}
	}
	if slug == "" {
		return nil, invalidf("feed slug is required")
	}

	episodes, err := fetcher.FetchEpisodes(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, invalidf("feed for %q returned no episodes", slug)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("sync rollback failed", slog.Any("err", err))
		}
	}()

	res := &SyncResult{VideoID: videoID}

	// The season count reflects every valid feed entry, including ones the
	// episode cap keeps out of the table.
	maxSeason := 0
	for _, ep := range episodes {
		if ep.Season > 0 && ep.Episode > 0 && ep.Season > maxSeason {
			maxSeason = ep.Season
		}
	}

	for i, ep := range episodes {
		if maxEpisodes > 0 && i >= maxEpisodes {
			res.Skipped = len(episodes) - i
			break
		}
		if ep.Season <= 0 || ep.Episode <= 0 {
			res.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO episodes (video_id, season, episode, title)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (video_id, season, episode) DO UPDATE SET title=EXCLUDED.title`,
			videoID, ep.Season, ep.Episode, ep.Title); err != nil {
			return nil, fmt.Errorf("upsert episode S%dE%d: %w", ep.Season, ep.Episode, err)
		}
		res.Upserted++
	}
	if res.Upserted == 0 {
		return nil, invalidf("feed for %q contained no usable episodes", slug)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE videos SET seasons=$2, updated_at=NOW() WHERE id=$1`, videoID, maxSeason); err != nil {
		return nil, fmt.Errorf("update season count: %w", err)
	}
	res.Seasons = maxSeason

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync tx: %w", err)
	}
	return res, nil
}
