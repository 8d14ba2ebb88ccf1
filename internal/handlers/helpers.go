package handlers

import (
	"errors"
	"net/http"

	"github.com/onlinelabs/urenwerk/auth"
	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
)

// currentUser resolves the session user to a full profile. The middleware has
// already verified the session exists, so a miss here means the profile was
// deleted mid-session.
func currentUser(r *http.Request, st *store.Store) (models.User, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return models.User{}, false
	}
	user, err := st.GetUser(r.Context(), uid)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

// requireAdmin writes a 403 and returns false when the caller lacks the admin
// role. Project and team management are admin-only.
func requireAdmin(w http.ResponseWriter, r *http.Request, st *store.Store) (models.User, bool) {
	user, ok := currentUser(r, st)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return models.User{}, false
	}
	if !user.IsAdmin() {
		httpx.JSONError(w, http.StatusForbidden, "admin_required", nil)
		return models.User{}, false
	}
	return user, true
}

// storeError maps facade errors onto HTTP responses.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, store.ErrHasTimeEntries):
		httpx.JSONError(w, http.StatusConflict, "user_has_time_entries", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
