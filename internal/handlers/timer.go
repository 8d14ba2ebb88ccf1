package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/internal/tracker"
	"github.com/onlinelabs/urenwerk/validation"
)

// TimerHandler drives the entry lifecycle. A transition that does not apply
// to the entry's current state answers 200 with status "noop": the UI may
// fire a stale action after a refresh and that is not an error.
type TimerHandler struct {
	Store   *store.Store
	Tracker *tracker.Service
}

func NewTimerHandler(st *store.Store, tr *tracker.Service) *TimerHandler {
	return &TimerHandler{Store: st, Tracker: tr}
}

type timerResponse struct {
	Status    string           `json:"status"`
	Entry     models.TimeEntry `json:"entry"`
	ElapsedMS int64            `json:"elapsedMs"`
}

func writeTimer(w http.ResponseWriter, status int, state string, entry models.TimeEntry) {
	httpx.JSON(w, status, timerResponse{
		Status:    state,
		Entry:     entry,
		ElapsedMS: tracker.Elapsed(entry, time.Now()).Milliseconds(),
	})
}

func (h *TimerHandler) transition(w http.ResponseWriter, entry models.TimeEntry, err error) {
	switch {
	case err == nil:
		writeTimer(w, http.StatusOK, "ok", entry)
	case errors.Is(err, tracker.ErrInvalidTransition):
		writeTimer(w, http.StatusOK, "noop", entry)
	default:
		storeError(w, err)
	}
}

// Start: POST /timers/start
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		ProjectID   string `json:"projectId"`
		Description string `json:"description"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("projectId", req.ProjectID, v)
	validation.Required("description", req.Description, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	entry, err := h.Tracker.Start(r.Context(), req.ProjectID, user.ID, req.Description)
	if err != nil {
		storeError(w, err)
		return
	}
	writeTimer(w, http.StatusCreated, "ok", entry)
}

// Pause: POST /timers/{id}/pause
func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Tracker.Pause(r.Context(), r.PathValue("id"))
	h.transition(w, entry, err)
}

// Resume: POST /timers/{id}/resume
func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Tracker.Resume(r.Context(), r.PathValue("id"))
	h.transition(w, entry, err)
}

// Stop: POST /timers/{id}/stop
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Tracker.Stop(r.Context(), r.PathValue("id"))
	h.transition(w, entry, err)
}

// Restart: POST /timers/{id}/restart — new running entry copying project and
// description from an earlier one.
func (h *TimerHandler) Restart(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Tracker.Restart(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeTimer(w, http.StatusCreated, "ok", entry)
}

// Active: GET /timers — the caller's running or paused entries with live
// elapsed values, polled by the ticking display.
func (h *TimerHandler) Active(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	entries, err := h.Store.ActiveEntries(r.Context(), user.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	now := time.Now()
	out := make([]timerResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, timerResponse{
			Status:    "ok",
			Entry:     e,
			ElapsedMS: tracker.Elapsed(e, now).Milliseconds(),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out})
}
