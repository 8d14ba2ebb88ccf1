package handlers

import (
	"net/http"
	"time"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/reports"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/internal/tracker"
)

type ReportHandler struct {
	Store *store.Store
	Now   func() time.Time
}

func NewReportHandler(st *store.Store) *ReportHandler {
	return &ReportHandler{Store: st, Now: time.Now}
}

// Snapshot: GET /snapshot — the full dataset the client renders from. Every
// mutation on the client side is followed by a refetch of this.
func (h *ReportHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

type dashboardResponse struct {
	ActiveTimers  []timerResponse       `json:"activeTimers"`
	TurnoverToday float64               `json:"turnoverToday"`
	TurnoverWeek  float64               `json:"turnoverWeek"`
	TurnoverMonth float64               `json:"turnoverMonth"`
	Goal          reports.GoalStats     `json:"goal"`
	TopClients    []reports.ClientHours `json:"topClients"`
}

// Dashboard: GET /dashboard — the personal overview card set.
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	now := h.Now()
	monthFrom, monthTo := reports.MonthRange(now)

	resp := dashboardResponse{
		ActiveTimers:  []timerResponse{},
		TurnoverToday: reports.TurnoverForUser(snap.TimeEntries, snap.Projects, user.ID, reports.StartOfDay(now), now),
		TurnoverWeek:  reports.TurnoverForUser(snap.TimeEntries, snap.Projects, user.ID, reports.StartOfWeek(now), now),
		TurnoverMonth: reports.TurnoverForUser(snap.TimeEntries, snap.Projects, user.ID, monthFrom, monthTo),
		Goal:          reports.GoalProgress(user, snap.TimeEntries, now),
		TopClients:    reports.TopClients(snap.TimeEntries, snap.Projects, snap.Clients, user.ID, now, 5),
	}
	for _, e := range snap.TimeEntries {
		if e.UserID == user.ID && !e.Finished() {
			resp.ActiveTimers = append(resp.ActiveTimers, timerResponse{
				Status:    "ok",
				Entry:     e,
				ElapsedMS: tracker.Elapsed(e, now).Milliseconds(),
			})
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Budget: GET /projects/{id}/budget — the caller's remaining allocation.
func (h *ReportHandler) Budget(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r, h.Store)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	project, err := h.Store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	status, ok := reports.BudgetRemaining(project, user.ID, snap.TimeEntries)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "no_budget", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

// Prognose: GET /reports/prognose?month=2026-01 — the month-end projection
// across the whole team. Defaults to the current month.
func (h *ReportHandler) Prognose(w http.ResponseWriter, r *http.Request) {
	ref := h.Now()
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := time.ParseInLocation("2006-01", m, time.Local)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_month", nil)
			return
		}
		ref = parsed
	}
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	report := reports.Prognose(snap.Users, snap.Clients, snap.Projects, snap.TimeEntries, ref)
	httpx.JSON(w, http.StatusOK, report)
}

// Turnover: GET /reports/turnover?from=...&to=... — realized turnover over an
// arbitrary window, team-wide.
func (h *ReportHandler) Turnover(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	from, to := reports.MonthRange(now)
	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_from", nil)
			return
		}
		from = parsed
	}
	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_to", nil)
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	total := reports.Turnover(snap.TimeEntries, snap.Projects, from, to)
	httpx.JSON(w, http.StatusOK, map[string]float64{"turnover": total})
}
