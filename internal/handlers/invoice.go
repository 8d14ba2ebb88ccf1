package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/gemini"
	"github.com/onlinelabs/urenwerk/internal/invoicing"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/validation"
)

// SubjectRefiner rewrites an invoice subject from a free-form instruction.
type SubjectRefiner interface {
	RefineInvoiceSubject(ctx context.Context, project models.Project, invoice models.Invoice, instruction string) (string, error)
}

type InvoiceHandler struct {
	Store       *store.Store
	Refiner     SubjectRefiner
	NumberFloor int
	DueDays     int
	TaxRate     float64
}

func NewInvoiceHandler(st *store.Store, refiner SubjectRefiner, floor, dueDays int, taxRate float64) *InvoiceHandler {
	return &InvoiceHandler{
		Store:       st,
		Refiner:     refiner,
		NumberFloor: floor,
		DueDays:     dueDays,
		TaxRate:     taxRate,
	}
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap.Invoices)
}

// Create: POST /invoices — picks the next free number, builds the line items
// from the selected entries and marks those entries invoiced in the same
// transaction that stores the document.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID    string                `json:"projectId"`
		TimeEntryIDs []string              `json:"timeEntryIds"`
		ManualLines  []invoicing.LineInput `json:"manualLines"`
		TaxRate      *float64              `json:"taxRate"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("projectId", req.ProjectID, v)
	if len(req.TimeEntryIDs) == 0 && len(req.ManualLines) == 0 {
		v["timeEntryIds"] = "required"
	}
	for _, line := range req.ManualLines {
		validation.Required("manualLines.description", line.Description, v)
		validation.NonNegativeFloat("manualLines.quantity", line.Quantity, v)
	}
	taxRate := h.TaxRate
	if req.TaxRate != nil {
		validation.RangeFloat("taxRate", *req.TaxRate, 0, 1, v)
		taxRate = *req.TaxRate
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	project, err := h.Store.GetProject(r.Context(), req.ProjectID)
	if err != nil {
		storeError(w, err)
		return
	}
	snap, err := h.Store.FetchAll(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}

	wanted := make(map[string]bool, len(req.TimeEntryIDs))
	for _, id := range req.TimeEntryIDs {
		wanted[id] = true
	}
	var entries []models.TimeEntry
	for _, e := range snap.TimeEntries {
		if wanted[e.ID] && e.ProjectID == project.ID {
			entries = append(entries, e)
		}
	}
	if len(entries) != len(wanted) {
		httpx.JSONError(w, http.StatusBadRequest, "unknown_time_entries", nil)
		return
	}

	inv := invoicing.Generate(entries, req.ManualLines, invoicing.Params{
		ClientID:  project.ClientID,
		Project:   project,
		Number:    invoicing.NextNumber(snap.Invoices, h.NumberFloor),
		TaxRate:   taxRate,
		EntryIDs:  req.TimeEntryIDs,
		IssueDate: time.Now(),
		DueDays:   h.DueDays,
	})
	if err := h.Store.CreateInvoice(r.Context(), &inv); err != nil {
		storeError(w, err)
		return
	}
	created, err := h.Store.GetInvoice(r.Context(), inv.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Update: PATCH /invoices/{id} — subject, dates and line items; totals are
// recomputed, never trusted from the client.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.GetInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}
	var req struct {
		Subject   *string                  `json:"subject"`
		IssueDate *time.Time               `json:"issueDate"`
		DueDate   *time.Time               `json:"dueDate"`
		TaxRate   *float64                 `json:"taxRate"`
		LineItems []models.InvoiceLineItem `json:"lineItems"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Subject != nil {
		inv.Subject = *req.Subject
	}
	if req.IssueDate != nil {
		inv.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		inv.DueDate = *req.DueDate
	}
	if req.TaxRate != nil {
		v := make(validation.Violations)
		validation.RangeFloat("taxRate", *req.TaxRate, 0, 1, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		inv.TaxRate = *req.TaxRate
	}
	if req.LineItems != nil {
		for i := range req.LineItems {
			req.LineItems[i].ID = 0
			req.LineItems[i].InvoiceID = inv.ID
			req.LineItems[i].Position = i
		}
		inv.LineItems = req.LineItems
	}
	invoicing.Recompute(&inv)
	if err := h.Store.UpdateInvoice(r.Context(), &inv); err != nil {
		storeError(w, err)
		return
	}
	updated, err := h.Store.GetInvoice(r.Context(), inv.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete: DELETE /invoices/{id} — releases the linked entries back to
// uninvoiced before removing the document.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteInvoice(r.Context(), r.PathValue("id")); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Refine: POST /invoices/{id}/refine-subject — asks the language model for a
// new subject line and stores it.
func (h *InvoiceHandler) Refine(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Store.GetInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		storeError(w, err)
		return
	}
	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := make(validation.Violations)
	validation.Required("instruction", req.Instruction, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	project, err := h.Store.GetProject(r.Context(), inv.ProjectID)
	if err != nil {
		storeError(w, err)
		return
	}
	subject, err := h.Refiner.RefineInvoiceSubject(r.Context(), project, inv, req.Instruction)
	if err != nil {
		if errors.Is(err, gemini.ErrNotConfigured) {
			httpx.JSONError(w, http.StatusServiceUnavailable, "refiner_not_configured", nil)
			return
		}
		slog.Error("subject refinement failed", "invoice", inv.ID, "err", err)
		httpx.JSONError(w, http.StatusBadGateway, "refiner_failed", nil)
		return
	}
	inv.Subject = subject
	if err := h.Store.UpdateInvoice(r.Context(), &inv); err != nil {
		storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"subject": subject})
}
