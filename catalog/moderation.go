package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ivall/sifo/telemetry"
)

// Action is a moderator's verdict on a pending submission.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Queue holds everything waiting for moderator review.
type Queue struct {
	Videos []Video `json:"videos"`
	Links  []Link  `json:"links"`
}

// VideoEdits are optional moderator corrections applied at approval time.
// Nil fields leave the stored value untouched.
type VideoEdits struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Kind        *Kind    `json:"kind,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// LinkEdits are optional moderator corrections applied when approving a link.
type LinkEdits struct {
	URL     *string `json:"url,omitempty"`
	Service *string `json:"service,omitempty"`
	Quality *string `json:"quality,omitempty"`
}

// ListPending returns all unapproved videos and links, oldest first, so
// moderators work the queue in submission order.
func ListPending(ctx context.Context, db *sql.DB) (*Queue, error) {
	q := &Queue{Videos: make([]Video, 0), Links: make([]Link, 0)}

	rows, err := db.QueryContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE approved=FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		q.Videos = append(q.Videos, v)
	}
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", slog.Any("err", err))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `
		SELECT id, url, service, quality, language_id, video_id, episode_id, approved
		FROM links WHERE approved=FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		q.Links = append(q.Links, l)
	}
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", slog.Any("err", err))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	telemetry.SetModerationQueueDepth(len(q.Videos) + len(q.Links))
	return q, nil
}

// ReviewVideo applies a moderator verdict to a pending video. Approval may
// carry edits, which are written before the approved flag flips. Rejection
// deletes the row; episodes, links and category tags go with it.
func ReviewVideo(ctx context.Context, db *sql.DB, videoID int64, action Action, edits *VideoEdits) error {
	switch action {
	case ActionApprove:
		return approveVideo(ctx, db, videoID, edits)
	case ActionReject:
		res, err := db.ExecContext(ctx, `DELETE FROM videos WHERE id=$1`, videoID)
		if err != nil {
			return fmt.Errorf("reject video: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "video", ID: videoID}
		}
		telemetry.CountModeration("video", "reject")
		slog.Info("video rejected", slog.Int64("video_id", videoID))
		return nil
	default:
		return invalidf("unknown action %q", action)
	}
}

func approveVideo(ctx context.Context, db *sql.DB, videoID int64, edits *VideoEdits) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("review rollback failed", slog.Any("err", err))
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM videos WHERE id=$1)`, videoID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Entity: "video", ID: videoID}
	}

	if edits != nil {
		if edits.Name != nil {
			name := strings.TrimSpace(*edits.Name)
			if name == "" {
				return invalidf("name cannot be empty")
			}
			if _, err := tx.ExecContext(ctx, `UPDATE videos SET name=$2 WHERE id=$1`, videoID, name); err != nil {
				return fmt.Errorf("edit name: %w", err)
			}
		}
		if edits.Description != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE videos SET description=$2 WHERE id=$1`, videoID, *edits.Description); err != nil {
				return fmt.Errorf("edit description: %w", err)
			}
		}
		if edits.ImageURL != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE videos SET image_url=$2 WHERE id=$1`, videoID, *edits.ImageURL); err != nil {
				return fmt.Errorf("edit image_url: %w", err)
			}
		}
		if edits.Kind != nil {
			if !edits.Kind.Valid() {
				return invalidf("kind must be %q or %q", KindMovie, KindSeries)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE videos SET kind=$2 WHERE id=$1`, videoID, string(*edits.Kind)); err != nil {
				return fmt.Errorf("edit kind: %w", err)
			}
		}
		if edits.Categories != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM video_categories WHERE video_id=$1`, videoID); err != nil {
				return fmt.Errorf("clear tags: %w", err)
			}
			for _, name := range edits.Categories {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				catID, err := lookupCategory(ctx, tx, name, "")
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO video_categories (video_id, category_id)
					VALUES ($1,$2) ON CONFLICT DO NOTHING`, videoID, catID); err != nil {
					return fmt.Errorf("tag video: %w", err)
				}
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE videos SET approved=TRUE, updated_at=NOW() WHERE id=$1`, videoID); err != nil {
		return fmt.Errorf("approve video: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	telemetry.CountModeration("video", "approve")
	slog.Info("video approved", slog.Int64("video_id", videoID))
	return nil
}

// ReviewLink applies a moderator verdict to a pending link. Approval may
// carry edits; rejection deletes the row outright.
func ReviewLink(ctx context.Context, db *sql.DB, linkID int64, action Action, edits *LinkEdits) error {
	switch action {
	case ActionApprove:
		return approveLink(ctx, db, linkID, edits)
	case ActionReject:
		res, err := db.ExecContext(ctx, `DELETE FROM links WHERE id=$1`, linkID)
		if err != nil {
			return fmt.Errorf("reject link: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "link", ID: linkID}
		}
		telemetry.CountModeration("link", "reject")
		slog.Info("link rejected", slog.Int64("link_id", linkID))
		return nil
	default:
		return invalidf("unknown action %q", action)
	}
}

func approveLink(ctx context.Context, db *sql.DB, linkID int64, edits *LinkEdits) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("review rollback failed", slog.Any("err", err))
		}
	}()

	if edits != nil {
		if edits.URL != nil {
			u := strings.TrimSpace(*edits.URL)
			if u == "" {
				return invalidf("url cannot be empty")
			}
			if _, err := tx.ExecContext(ctx, `UPDATE links SET url=$2 WHERE id=$1`, linkID, u); err != nil {
				return fmt.Errorf("edit url: %w", err)
			}
		}
		if edits.Service != nil {
			s := strings.TrimSpace(*edits.Service)
			if s == "" {
				return invalidf("service cannot be empty")
			}
			if _, err := tx.ExecContext(ctx, `UPDATE links SET service=$2 WHERE id=$1`, linkID, s); err != nil {
				return fmt.Errorf("edit service: %w", err)
			}
		}
		if edits.Quality != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE links SET quality=$2 WHERE id=$1`, linkID, *edits.Quality); err != nil {
				return fmt.Errorf("edit quality: %w", err)
			}
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE links SET approved=TRUE WHERE id=$1`, linkID)
	if err != nil {
		return fmt.Errorf("approve link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "link", ID: linkID}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	telemetry.CountModeration("link", "approve")
	slog.Info("link approved", slog.Int64("link_id", linkID))
	return nil
}
