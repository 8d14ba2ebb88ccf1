package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/onlinelabs/urenwerk/internal/models"
)

func TestLogin(t *testing.T) {
	st := setupHandlerStore(t)
	user := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleAdmin)
	h := NewAuthHandler(st, newTracker(st))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", h.Login)

	rec := doJSON(t, mux, http.MethodPost, "/auth/login",
		map[string]string{"email": "imre@onlinelabs.nl", "password": "wachtwoord"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[models.User](t, rec)
	if got.ID != user.ID {
		t.Fatalf("logged in as %q, want %q", got.ID, user.ID)
	}
	var session bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			session = true
		}
	}
	if !session {
		t.Fatal("no session cookie set")
	}

	// password hash must never leak
	if body := rec.Body.String(); strings.Contains(body, user.PasswordHash) {
		t.Fatalf("response leaks credentials: %s", body)
	}

	rec = doJSON(t, mux, http.MethodPost, "/auth/login",
		map[string]string{"email": "imre@onlinelabs.nl", "password": "fout"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", rec.Code)
	}
	rec = doJSON(t, mux, http.MethodPost, "/auth/login",
		map[string]string{"email": "niemand@onlinelabs.nl", "password": "wachtwoord"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: %d", rec.Code)
	}
}

func TestLogoutBlockedByActiveTimer(t *testing.T) {
	st := setupHandlerStore(t)
	user := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleMember)
	_, project := seedProject(t, st)
	tr := newTracker(st)
	h := NewAuthHandler(st, tr)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", h.Logout)
	cookie := sessionCookie(user.ID)

	entry, err := tr.Start(t.Context(), project.ID, user.ID, "bezig")
	if err != nil {
		t.Fatalf("start timer: %v", err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/auth/logout", nil, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("logout with running timer: %d, want 409", rec.Code)
	}

	if _, err := tr.Stop(t.Context(), entry.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	rec = doJSON(t, mux, http.MethodPost, "/auth/logout", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout after stop: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMeStaleSession(t *testing.T) {
	st := setupHandlerStore(t)
	user := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleMember)
	h := NewAuthHandler(st, newTracker(st))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", h.Me)
	cookie := sessionCookie(user.ID)

	rec := doJSON(t, mux, http.MethodGet, "/auth/me", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}

	if err := st.DeleteUser(t.Context(), user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	rec = doJSON(t, mux, http.MethodGet, "/auth/me", nil, cookie)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale session: %d, want 401", rec.Code)
	}
}
