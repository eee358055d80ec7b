package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivall/sifo/captcha"
	"github.com/ivall/sifo/catalog"
	"github.com/ivall/sifo/config"
	"github.com/ivall/sifo/telemetry"
)

// NewMux returns the HTTP handler with all routes.
// The provided context governs the rate limiter cleanup goroutine lifecycle.
func NewMux(ctx context.Context, db *sql.DB, cfg *config.Config, verifier *captcha.Verifier, fetcher catalog.FeedFetcher) http.Handler {
	rateLimiterCfg := loadRateLimiterConfig()
	corsCfg := loadCORSConfig()
	rateLimiter := newIPRateLimiter(ctx, rateLimiterCfg)

	handlers := NewHandlers(ctx, db, cfg, verifier, fetcher)
	return buildMux(handlers, rateLimiter, corsCfg)
}

// buildMux assembles routes and middleware around an already-built Handlers.
// Split out so tests can inject a Handlers with a stubbed session lookup.
func buildMux(handlers *Handlers, rateLimiter *ipRateLimiter, corsCfg *corsConfig) http.Handler {
	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health and status endpoints
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.HandleFunc("/readyz", handlers.HandleReadyz)
	mux.HandleFunc("/status", handlers.HandleStatus)

	// Public catalog endpoints
	mux.HandleFunc("/videos", handlers.HandleVideosList)
	mux.HandleFunc("/videos/", handlers.HandleVideosDispatcher)
	mux.HandleFunc("/categories", handlers.HandleCategories)

	// Public submission endpoints, captcha-gated in the handlers
	mux.HandleFunc("/submit/video", handlers.HandleSubmitVideo)
	mux.HandleFunc("/submit/link", handlers.HandleSubmitLink)

	// Account endpoints
	mux.HandleFunc("/auth/register", handlers.HandleRegister)
	mux.HandleFunc("/auth/login", handlers.HandleLogin)
	mux.HandleFunc("/auth/logout", handlers.HandleLogout)
	mux.HandleFunc("/auth/me", handlers.HandleMe)

	// Moderation endpoints
	mux.HandleFunc("/admin/queue", handlers.HandleAdminQueue)
	mux.HandleFunc("/admin/videos/", handlers.HandleAdminVideosDispatcher)
	mux.HandleFunc("/admin/links/", handlers.HandleAdminLinksDispatcher)
	mux.HandleFunc("/admin/config", handlers.HandleAdminConfig)

	// Guard admin routes with session auth plus rate limiting, and throttle
	// the public submission and login endpoints.
	selectiveHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/admin/") {
			handlers.adminOnly(rateLimitMiddleware(mux, rateLimiter)).ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/submit/") || r.URL.Path == "/auth/login" || r.URL.Path == "/auth/register" {
			rateLimitMiddleware(mux, rateLimiter).ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})

	// Wrap with correlation ID injector and tracing middleware
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		start := time.Now()
		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		selectiveHandler.ServeHTTP(wrappedWriter, r.WithContext(ctx))

		if telemetry.RequestDuration != nil {
			telemetry.RequestDuration.Observe(time.Since(start).Seconds())
		}
		telemetry.SetSpanHTTPStatus(span, wrappedWriter.statusCode)
		if wrappedWriter.statusCode >= 400 {
			telemetry.RecordError(span, fmt.Errorf("HTTP %d", wrappedWriter.statusCode))
		}
	})
	return withCORSConfig(handler, corsCfg)
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, db *sql.DB, cfg *config.Config, verifier *captcha.Verifier, fetcher catalog.FeedFetcher) error {
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewMux(ctx, db, cfg, verifier, fetcher),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
