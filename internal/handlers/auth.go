package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/onlinelabs/urenwerk/auth"
	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/internal/tracker"
	"github.com/onlinelabs/urenwerk/validation"
)

type AuthHandler struct {
	Store   *store.Store
	Tracker *tracker.Service
}

func NewAuthHandler(st *store.Store, tr *tracker.Service) *AuthHandler {
	return &AuthHandler{Store: st, Tracker: tr}
}

// Login: POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// indistinguishable from a wrong password on purpose
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

// Logout: POST /auth/logout — refused while the user still has an active
// timer, so no entry keeps running unattended after sign-out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		auth.ClearSession(w)
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
		return
	}
	active, err := h.Tracker.HasActiveEntries(r.Context(), user.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	if active {
		httpx.JSONError(w, http.StatusConflict, "active_timer_running",
			"Stop uw actieve timer voordat u uitlogt.")
		return
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Me: GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		auth.ClearSession(w)
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
