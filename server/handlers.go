// Package server exposes the HTTP API: public catalog browsing, captcha-gated
// submissions, session-authenticated moderation, health, status, and metrics.
// It includes permissive CORS for development and injects correlation IDs into
// request contexts for consistent logging.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ivall/sifo/auth"
	"github.com/ivall/sifo/captcha"
	"github.com/ivall/sifo/catalog"
	"github.com/ivall/sifo/config"
	"github.com/ivall/sifo/telemetry"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db      *sql.DB
	ctx     context.Context
	cfg     *config.Config
	captcha *captcha.Verifier
	fetcher catalog.FeedFetcher

	// lookupSession is swappable so middleware tests run without Postgres.
	lookupSession func(ctx context.Context, token string) (*auth.Session, error)
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, db *sql.DB, cfg *config.Config, verifier *captcha.Verifier, fetcher catalog.FeedFetcher) *Handlers {
	return &Handlers{
		db:      db,
		ctx:     ctx,
		cfg:     cfg,
		captcha: verifier,
		fetcher: fetcher,
		lookupSession: func(ctx context.Context, token string) (*auth.Session, error) {
			return auth.LookupSession(ctx, db, token)
		},
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

// writeError maps domain errors onto HTTP statuses: validation 400, missing
// auth 401, wrong role 403, unknown entity 404, unreachable feed 502,
// everything else 500 with the detail kept out of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	msg := err.Error()
	switch {
	case catalog.IsValidation(err):
		status = http.StatusBadRequest
	case auth.IsAuth(err):
		status = http.StatusUnauthorized
		var ae *auth.AuthError
		if errors.As(err, &ae) && ae.Forbidden {
			status = http.StatusForbidden
		}
	case catalog.IsNotFound(err):
		status = http.StatusNotFound
	case catalog.IsFetch(err):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		msg = "internal error"
		telemetry.LoggerWithCorr(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
