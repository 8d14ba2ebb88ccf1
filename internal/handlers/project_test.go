package handlers

import (
	"net/http"
	"testing"

	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
)

func projectMux(st *store.Store) *http.ServeMux {
	h := NewProjectHandler(st)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /projects", h.List)
	mux.HandleFunc("POST /projects", h.Create)
	mux.HandleFunc("PATCH /projects/{id}", h.Update)
	return mux
}

func TestProjectCreateAdminOnly(t *testing.T) {
	st := setupHandlerStore(t)
	admin := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleAdmin)
	member := seedUser(t, st, "sanne@onlinelabs.nl", "wachtwoord", models.RoleMember)
	client, _ := seedProject(t, st)
	mux := projectMux(st)

	payload := map[string]any{
		"name":     "Huisstijl",
		"clientId": client.ID,
		"rate":     95.0,
		"budgets": []map[string]any{
			{"userId": member.ID, "hours": 12.0},
		},
	}

	rec := doJSON(t, mux, http.MethodPost, "/projects", payload, sessionCookie(member.ID))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member create: %d, want 403", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/projects", payload, sessionCookie(admin.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: %d %s", rec.Code, rec.Body.String())
	}
	project := decodeBody[models.Project](t, rec)
	if project.Rate != 95 || len(project.Budgets) != 1 || project.Budgets[0].Hours != 12 {
		t.Fatalf("project = %+v", project)
	}

	// members can still read
	rec = doJSON(t, mux, http.MethodGet, "/projects", nil, sessionCookie(member.ID))
	if rec.Code != http.StatusOK {
		t.Fatalf("member list: %d", rec.Code)
	}
	if projects := decodeBody[[]models.Project](t, rec); len(projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(projects))
	}
}

func TestProjectUpdateReplacesBudgets(t *testing.T) {
	st := setupHandlerStore(t)
	admin := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleAdmin)
	_, project := seedProject(t, st)
	mux := projectMux(st)
	cookie := sessionCookie(admin.ID)

	rec := doJSON(t, mux, http.MethodPatch, "/projects/"+project.ID, map[string]any{
		"rate": 110.0,
		"budgets": []map[string]any{
			{"userId": admin.ID, "hours": 8.0},
		},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[models.Project](t, rec)
	if got.Rate != 110 || len(got.Budgets) != 1 || got.Budgets[0].UserID != admin.ID {
		t.Fatalf("updated = %+v", got)
	}

	rec = doJSON(t, mux, http.MethodPatch, "/projects/"+project.ID, map[string]any{
		"rate": -5.0,
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative rate accepted: %d", rec.Code)
	}
}

func TestUserDeleteGuards(t *testing.T) {
	st := setupHandlerStore(t)
	admin := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleAdmin)
	member := seedUser(t, st, "sanne@onlinelabs.nl", "wachtwoord", models.RoleMember)
	_, project := seedProject(t, st)
	seedFinishedEntry(t, st, project.ID, member.ID, 1)

	h := NewUserHandler(st)
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /users/{id}", h.Delete)
	cookie := sessionCookie(admin.ID)

	rec := doJSON(t, mux, http.MethodDelete, "/users/"+admin.ID, nil, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("self delete: %d, want 409", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/users/"+member.ID, nil, cookie)
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete with entries: %d, want 409", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["error"] != "user_has_time_entries" {
		t.Fatalf("error = %v", body["error"])
	}

	rec = doJSON(t, mux, http.MethodDelete, "/users/"+member.ID, nil, sessionCookie(member.ID))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member delete: %d, want 403", rec.Code)
	}
}
