package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/validation"
)

type UserHandler struct {
	Store *store.Store
}

func NewUserHandler(st *store.Store) *UserHandler {
	return &UserHandler{Store: st}
}

// List: GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap.Users)
}

// Create: POST /users — admin only.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r, h.Store); !ok {
		return
	}
	var req struct {
		Name            string   `json:"name"`
		Email           string   `json:"email"`
		Password        string   `json:"password"`
		Role            string   `json:"role"`
		MonthlyHourGoal *float64 `json:"monthlyHourGoal"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Email("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if req.Role != "" && req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		v["role"] = "unknown_role"
	}
	if req.MonthlyHourGoal != nil {
		validation.PositiveFloat("monthlyHourGoal", *req.MonthlyHourGoal, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	user := models.User{
		Name:            req.Name,
		Email:           req.Email,
		PasswordHash:    string(hash),
		Role:            role,
		MonthlyHourGoal: req.MonthlyHourGoal,
	}
	if err := h.Store.CreateUser(r.Context(), &user); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// Update: PATCH /users/{id} — admins may edit anyone, members only their own
// goal and name.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(r, h.Store)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id := r.PathValue("id")
	if !actor.IsAdmin() && actor.ID != id {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var req struct {
		Name            *string  `json:"name"`
		Email           *string  `json:"email"`
		Password        *string  `json:"password"`
		Role            *string  `json:"role"`
		MonthlyHourGoal *float64 `json:"monthlyHourGoal"`
		ClearGoal       bool     `json:"clearGoal"`
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
	if req.Email != nil {
		if !actor.IsAdmin() {
			httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		validation.Required("email", *req.Email, v)
		validation.Email("email", *req.Email, v)
		fields["email"] = *req.Email
	}
	if req.Role != nil {
		if !actor.IsAdmin() {
			httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleMember {
			v["role"] = "unknown_role"
		}
		fields["role"] = *req.Role
	}
	if req.Password != nil {
		validation.Required("password", *req.Password, v)
		if v.Empty() {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
				return
			}
			fields["password_hash"] = string(hash)
		}
	}
	if req.MonthlyHourGoal != nil {
		validation.PositiveFloat("monthlyHourGoal", *req.MonthlyHourGoal, v)
		fields["monthly_hour_goal"] = *req.MonthlyHourGoal
	} else if req.ClearGoal {
		fields["monthly_hour_goal"] = nil
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if len(fields) > 0 {
		if err := h.Store.UpdateUser(r.Context(), id, fields); err != nil {
			storeError(w, err)
			return
		}
	}
	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Delete: DELETE /users/{id} — admin only, refuses the caller's own account
// and any account that still has time entries on record.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r, h.Store)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id == actor.ID {
		httpx.JSONError(w, http.StatusConflict, "cannot_delete_self", nil)
		return
	}
	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
