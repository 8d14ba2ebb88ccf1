package handlers

import (
	"net/http"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/validation"
)

// ProjectHandler. Mutations are admin only; rates and budgets are not
// something members set for themselves.
type ProjectHandler struct {
	Store *store.Store
}

func NewProjectHandler(st *store.Store) *ProjectHandler {
	return &ProjectHandler{Store: st}
}

// List: GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap.Projects)
}

type budgetRequest struct {
	UserID string  `json:"userId"`
	Hours  float64 `json:"hours"`
}

// Create: POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}
	var req struct {
		Name     string          `json:"name"`
		ClientID string          `json:"clientId"`
		Rate     float64         `json:"rate"`
		Budgets  []budgetRequest `json:"budgets"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	validation.Required("clientId", req.ClientID, v)
	validation.PositiveFloat("rate", req.Rate, v)
	for _, b := range req.Budgets {
		validation.Required("budgets.userId", b.UserID, v)
		validation.NonNegativeFloat("budgets.hours", b.Hours, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	project := models.Project{
		Name:     req.Name,
		ClientID: req.ClientID,
		Rate:     req.Rate,
	}
	for _, b := range req.Budgets {
		project.Budgets = append(project.Budgets, models.UserBudget{
			UserID: b.UserID,
			Hours:  b.Hours,
		})
	}
	if err := h.Store.CreateProject(r.Context(), &project); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

// Update: PATCH /projects/{id} — a budgets array, when present, replaces the
// whole set.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}
	id := r.PathValue("id")
	var req struct {
		Name     *string          `json:"name"`
		ClientID *string          `json:"clientId"`
		Rate     *float64         `json:"rate"`
		Budgets  *[]budgetRequest `json:"budgets"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	fields := map[string]any{}
	if req.Name != nil {
		validation.Required("name", *req.Name, v)
		fields["name"] = *req.Name
	}
	if req.ClientID != nil {
		validation.Required("clientId", *req.ClientID, v)
		fields["client_id"] = *req.ClientID
	}
	if req.Rate != nil {
		validation.PositiveFloat("rate", *req.Rate, v)
		fields["rate"] = *req.Rate
	}
	var budgets []models.UserBudget
	if req.Budgets != nil {
		budgets = make([]models.UserBudget, 0, len(*req.Budgets))
		for _, b := range *req.Budgets {
			validation.Required("budgets.userId", b.UserID, v)
			validation.NonNegativeFloat("budgets.hours", b.Hours, v)
			budgets = append(budgets, models.UserBudget{
				ProjectID: id,
				UserID:    b.UserID,
				Hours:     b.Hours,
			})
		}
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if err := h.Store.UpdateProject(r.Context(), id, fields, budgets); err != nil {
		storeError(w, err)
		return
	}
	project, err := h.Store.GetProject(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}
