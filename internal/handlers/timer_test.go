package handlers

import (
	"net/http"
	"testing"

	"github.com/onlinelabs/urenwerk/internal/models"
)

func timerMux(h *TimerHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /timers", h.Active)
	mux.HandleFunc("POST /timers/start", h.Start)
	mux.HandleFunc("POST /timers/{id}/pause", h.Pause)
	mux.HandleFunc("POST /timers/{id}/resume", h.Resume)
	mux.HandleFunc("POST /timers/{id}/stop", h.Stop)
	mux.HandleFunc("POST /timers/{id}/restart", h.Restart)
	return mux
}

type timerBody struct {
	Status    string           `json:"status"`
	Entry     models.TimeEntry `json:"entry"`
	ElapsedMS int64            `json:"elapsedMs"`
}

func TestTimerLifecycleOverHTTP(t *testing.T) {
	st := setupHandlerStore(t)
	user := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleMember)
	_, project := seedProject(t, st)
	mux := timerMux(NewTimerHandler(st, newTracker(st)))
	cookie := sessionCookie(user.ID)

	rec := doJSON(t, mux, http.MethodPost, "/timers/start",
		map[string]string{"projectId": project.ID, "description": "bouwen"}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	started := decodeBody[timerBody](t, rec)
	if started.Entry.ID == "" || started.Entry.IsPaused {
		t.Fatalf("started entry: %+v", started.Entry)
	}
	id := started.Entry.ID

	rec = doJSON(t, mux, http.MethodPost, "/timers/"+id+"/pause", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: %d", rec.Code)
	}
	paused := decodeBody[timerBody](t, rec)
	if paused.Status != "ok" || !paused.Entry.IsPaused {
		t.Fatalf("pause body: %+v", paused)
	}

	// a second pause is a stale UI action, not an error
	rec = doJSON(t, mux, http.MethodPost, "/timers/"+id+"/pause", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("double pause: %d", rec.Code)
	}
	if body := decodeBody[timerBody](t, rec); body.Status != "noop" {
		t.Fatalf("double pause status = %q, want noop", body.Status)
	}

	rec = doJSON(t, mux, http.MethodPost, "/timers/"+id+"/resume", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume: %d", rec.Code)
	}

	// paused and running entries both count as active
	rec = doJSON(t, mux, http.MethodGet, "/timers", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("active: %d", rec.Code)
	}
	active := decodeBody[map[string][]timerBody](t, rec)
	if len(active["items"]) != 1 {
		t.Fatalf("active items = %+v", active)
	}

	rec = doJSON(t, mux, http.MethodPost, "/timers/"+id+"/stop", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: %d", rec.Code)
	}
	stopped := decodeBody[timerBody](t, rec)
	if stopped.Entry.EndTime == nil || stopped.Entry.IsPaused {
		t.Fatalf("stop body: %+v", stopped.Entry)
	}

	rec = doJSON(t, mux, http.MethodPost, "/timers/"+id+"/stop", nil, cookie)
	if body := decodeBody[timerBody](t, rec); rec.Code != http.StatusOK || body.Status != "noop" {
		t.Fatalf("double stop: %d %q", rec.Code, body.Status)
	}

	rec = doJSON(t, mux, http.MethodGet, "/timers", nil, cookie)
	active = decodeBody[map[string][]timerBody](t, rec)
	if len(active["items"]) != 0 {
		t.Fatalf("stopped entry still active: %+v", active)
	}

	// restart spawns a fresh running entry with the same project and text
	rec = doJSON(t, mux, http.MethodPost, "/timers/"+id+"/restart", nil, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("restart: %d", rec.Code)
	}
	restarted := decodeBody[timerBody](t, rec)
	if restarted.Entry.ID == id || restarted.Entry.Description != "bouwen" {
		t.Fatalf("restart body: %+v", restarted.Entry)
	}
}

func TestTimerStartValidation(t *testing.T) {
	st := setupHandlerStore(t)
	user := seedUser(t, st, "imre@onlinelabs.nl", "wachtwoord", models.RoleMember)
	mux := timerMux(NewTimerHandler(st, newTracker(st)))
	cookie := sessionCookie(user.ID)

	rec := doJSON(t, mux, http.MethodPost, "/timers/start",
		map[string]string{"projectId": "", "description": ""}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("start without fields: %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/timers/onbekend/stop", nil, cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stop unknown: %d, want 404", rec.Code)
	}
}
