package handlers

import (
	"net/http"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/validation"
)

type ClientHandler struct {
	Store *store.Store
}

func NewClientHandler(st *store.Store) *ClientHandler {
	return &ClientHandler{Store: st}
}

// List: GET /clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap.Clients)
}

type clientRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contactPerson"`
	Address       string `json:"address"`
	ZipCode       string `json:"zipCode"`
	City          string `json:"city"`
	BTWID         string `json:"btwId"`
	KVK           string `json:"kvk"`
}

// Create: POST /clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	client := models.Client{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Address:       req.Address,
		ZipCode:       req.ZipCode,
		City:          req.City,
		BTWID:         req.BTWID,
		KVK:           req.KVK,
	}
	if err := h.Store.CreateClient(r.Context(), &client); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

// Update: PATCH /clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string `json:"name"`
		ContactPerson *string `json:"contactPerson"`
		Address       *string `json:"address"`
		ZipCode       *string `json:"zipCode"`
		City          *string `json:"city"`
		BTWID         *string `json:"btwId"`
		KVK           *string `json:"kvk"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	fields := map[string]any{}
	if req.Name != nil {
		v := make(validation.Violations)
		validation.Required("name", *req.Name, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		fields["name"] = *req.Name
	}
	if req.ContactPerson != nil {
		fields["contact_person"] = *req.ContactPerson
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if req.ZipCode != nil {
		fields["zip_code"] = *req.ZipCode
	}
	if req.City != nil {
		fields["city"] = *req.City
	}
	if req.BTWID != nil {
		fields["btw_id"] = *req.BTWID
	}
	if req.KVK != nil {
		fields["kvk"] = *req.KVK
	}
	if len(fields) > 0 {
		if err := h.Store.UpdateClient(r.Context(), r.PathValue("id"), fields); err != nil {
			storeError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete: DELETE /clients/{id} — removes the client and everything hanging
// off it (projects, entries, budgets, invoices) in one transaction.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteClientCascade(r.Context(), r.PathValue("id")); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
