package server

import (
	"encoding/json"
	"net/http"

	"github.com/ivall/sifo/auth"
	"github.com/ivall/sifo/catalog"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister serves POST /auth/register. Registration is captcha-gated
// like the submission endpoints.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		credentialsRequest
		PasswordConfirm string `json:"password_confirm"`
		CaptchaToken    string `json:"captcha_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	if !h.requireCaptcha(w, r, req.CaptchaToken) {
		return
	}
	u, err := auth.Register(r.Context(), h.db, req.Username, req.Password, req.PasswordConfirm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleLogin serves POST /auth/login and returns a session token.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, &catalog.ValidationError{Msg: "invalid JSON body"})
		return
	}
	s, err := auth.Authenticate(r.Context(), h.db, req.Username, req.Password, h.cfg.SessionTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleLogout serves POST /auth/logout.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := auth.Logout(r.Context(), h.db, bearerToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// HandleMe serves GET /auth/me, echoing the caller's session.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, err := h.lookupSession(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
