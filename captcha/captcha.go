// Package captcha verifies reCAPTCHA tokens against Google's siteverify
// endpoint. Public submission routes call it before touching the database.
package captcha

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ivall/sifo/telemetry"
)

// DefaultVerifyURL is Google's siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Verifier checks submission captcha tokens. An empty Secret disables
// verification, which keeps local development and tests working without
// Google credentials.
type Verifier struct {
	Secret     string
	VerifyURL  string
	HTTPClient *http.Client
}

func (v *Verifier) http() *http.Client {
	if v.HTTPClient != nil {
		return v.HTTPClient
	}
	return http.DefaultClient
}

func (v *Verifier) endpoint() string {
	if v.VerifyURL != "" {
		return v.VerifyURL
	}
	return DefaultVerifyURL
}

// Enabled reports whether verification is configured.
func (v *Verifier) Enabled() bool { return v.Secret != "" }

// Verify reports whether the token passes. A disabled verifier accepts
// everything; an enabled one rejects empty tokens without calling out.
// Network or decode failures count as verification failure, never as a pass.
func (v *Verifier) Verify(ctx context.Context, token string) bool {
	if !v.Enabled() {
		return true
	}
	if token == "" {
		telemetry.CountCaptchaFailure()
		return false
	}

	form := url.Values{}
	form.Set("secret", v.Secret)
	form.Set("response", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		telemetry.CountCaptchaFailure()
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http().Do(req)
	if err != nil {
		slog.Warn("captcha verification request failed", slog.Any("err", err))
		telemetry.CountCaptchaFailure()
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		slog.Warn("captcha verification returned malformed response", slog.Any("err", err))
		telemetry.CountCaptchaFailure()
		return false
	}
	if !body.Success {
		telemetry.CountCaptchaFailure()
	}
	return body.Success
}
