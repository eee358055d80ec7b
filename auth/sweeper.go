package auth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"time"
)

// StartSessionSweeper launches a goroutine that periodically deletes expired
// sessions. Expired tokens are already invisible to LookupSession; the
// sweeper just keeps the table from growing without bound.
func StartSessionSweeper(ctx context.Context, db *sql.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
			if err != nil {
				slog.Warn("session sweep failed", slog.Any("err", err))
				continue
			}
			if n, _ := res.RowsAffected(); n > 0 {
				slog.Info("swept expired sessions", slog.Int64("count", n))
			}
		}
	}()
}
