package handlers

import (
	"net/http"
	"time"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/internal/tracker"
	"github.com/onlinelabs/urenwerk/validation"
)

// EntryHandler covers the manual-edit path for entries that are no longer (or
// never were) driven by the timer state machine.
type EntryHandler struct {
	Store   *store.Store
	Tracker *tracker.Service
}

func NewEntryHandler(st *store.Store, tr *tracker.Service) *EntryHandler {
	return &EntryHandler{Store: st, Tracker: tr}
}

// CreateManual: POST /time-entries — backfills a finished entry on a given
// date (synthetic 09:00 start).
func (h *EntryHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		ProjectID     string  `json:"projectId"`
		UserID        string  `json:"userId"`
		Description   string  `json:"description"`
		Date          string  `json:"date"`
		DurationHours float64 `json:"durationHours"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.UserID == "" {
		req.UserID = user.ID
	}
	v := make(validation.Violations)
	validation.Required("projectId", req.ProjectID, v)
	validation.Required("description", req.Description, v)
	validation.Required("date", req.Date, v)
	validation.PositiveFloat("durationHours", req.DurationHours, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	entry, err := h.Tracker.AddManual(r.Context(), tracker.ManualEntry{
		ProjectID:     req.ProjectID,
		UserID:        req.UserID,
		Description:   req.Description,
		Date:          req.Date,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_manual_entry", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// Update: PATCH /time-entries/{id} — description, project, date and duration.
// Moving the date keeps the clock time and, for a finished entry, recomputes
// the end from the accumulated duration.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, err := h.Store.GetTimeEntry(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	var req struct {
		Description   *string  `json:"description"`
		ProjectID     *string  `json:"projectId"`
		Date          *string  `json:"date"`
		DurationHours *float64 `json:"durationHours"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	fields := map[string]any{}
	if req.Description != nil {
		v := make(validation.Violations)
		validation.Required("description", *req.Description, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		fields["description"] = *req.Description
	}
	if req.ProjectID != nil {
		fields["project_id"] = *req.ProjectID
	}
	if req.DurationHours != nil {
		if *req.DurationHours < 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
				validation.Violations{"durationHours": "must_not_be_negative"})
			return
		}
		entry.AccumulatedMS = int64(*req.DurationHours * 3_600_000)
		fields["accumulated_ms"] = entry.AccumulatedMS
	}
	if req.Date != nil {
		day, err := time.ParseInLocation("2006-01-02", *req.Date, time.Local)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
				validation.Violations{"date": "invalid_date"})
			return
		}
		old := entry.StartTime
		newStart := time.Date(day.Year(), day.Month(), day.Day(),
			old.Hour(), old.Minute(), old.Second(), old.Nanosecond(), old.Location())
		if !newStart.Equal(old) {
			fields["start_time"] = newStart
			if entry.Finished() {
				fields["end_time"] = newStart.Add(time.Duration(entry.AccumulatedMS) * time.Millisecond)
			}
		}
	}
	if len(fields) == 0 {
		httpx.JSON(w, http.StatusOK, entry)
		return
	}
	if err := h.Store.UpdateTimeEntry(r.Context(), id, fields); err != nil {
		storeError(w, err)
		return
	}
	updated, err := h.Store.GetTimeEntry(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /time-entries/{id}
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTimeEntry(r.Context(), r.PathValue("id")); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ResetAll: POST /admin/time-entries/reset — wipes every entry. Admin only.
func (h *EntryHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}
	if err := h.Store.ResetTimeEntries(r.Context()); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
