// Package invoicing turns a selection of finished time entries plus ad-hoc
// line items into an immutable invoice with computed totals and a
// collision-free sequential number.
package invoicing

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/onlinelabs/urenwerk/internal/models"
)

// Round2 rounds to whole cents. Every line total is rounded at creation, for
// time-based and manual lines alike, so subtotal always equals the sum of the
// printed line totals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NextNumber finds the first free invoice number at or above floor. Numbers
// freed by deleting an invoice are reclaimed before the sequence is extended;
// non-numeric numbers in the existing set are ignored.
func NextNumber(existing []models.Invoice, floor int) string {
	used := make(map[int]bool, len(existing))
	for _, inv := range existing {
		if n, err := strconv.Atoi(inv.Number); err == nil {
			used[n] = true
		}
	}
	next := floor
	for used[next] {
		next++
	}
	return strconv.Itoa(next)
}

// LineInput is an ad-hoc (non time-based) invoice line.
type LineInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
}

// Params collects everything Generate needs besides the entry set.
type Params struct {
	ClientID  string
	Project   models.Project
	Number    string
	TaxRate   float64
	EntryIDs  []string // echoed into the invoice for reversal on delete
	IssueDate time.Time
	DueDays   int
}

// Generate builds the invoice document. Entries are listed newest-first; a
// finished entry with a positive duration becomes a "dd-mm-yyyy - description"
// line with its hours (2 decimals) at the project rate, while an unfinished or
// zero-duration entry still yields a zero-quantity line so the invoice
// accounts for every selected entry. Manual items follow the time lines.
func Generate(entries []models.TimeEntry, manual []LineInput, p Params) models.Invoice {
	sorted := make([]models.TimeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})

	lines := make([]models.InvoiceLineItem, 0, len(sorted)+len(manual))
	for _, e := range sorted {
		if !e.Finished() || e.AccumulatedMS <= 0 {
			lines = append(lines, models.InvoiceLineItem{
				Description: e.Description,
				Quantity:    0,
				Price:       p.Project.Rate,
				Total:       0,
			})
			continue
		}
		hours := e.Hours()
		lines = append(lines, models.InvoiceLineItem{
			Description: e.StartTime.Format("02-01-2006") + " - " + e.Description,
			Quantity:    Round2(hours),
			Price:       p.Project.Rate,
			Total:       Round2(hours * p.Project.Rate),
		})
	}
	for _, m := range manual {
		lines = append(lines, models.InvoiceLineItem{
			Description: m.Description,
			Quantity:    m.Quantity,
			Price:       m.Price,
			Total:       Round2(m.Quantity * m.Price),
		})
	}
	for i := range lines {
		lines[i].Position = i
	}

	var subtotal float64
	for _, line := range lines {
		subtotal += line.Total
	}
	subtotal = Round2(subtotal)
	tax := Round2(subtotal * p.TaxRate)

	links := make([]models.InvoiceEntry, 0, len(p.EntryIDs))
	for _, id := range p.EntryIDs {
		if id == "" {
			continue
		}
		links = append(links, models.InvoiceEntry{TimeEntryID: id})
	}

	return models.Invoice{
		Number:    p.Number,
		ClientID:  p.ClientID,
		ProjectID: p.Project.ID,
		Subject:   "Werkzaamheden voor project " + p.Project.Name,
		IssueDate: p.IssueDate,
		DueDate:   p.IssueDate.AddDate(0, 0, p.DueDays),
		LineItems: lines,
		Subtotal:  subtotal,
		Tax:       tax,
		TaxRate:   p.TaxRate,
		Total:     Round2(subtotal + tax),
		Entries:   links,
	}
}

// Recompute refreshes subtotal/tax/total from the invoice's current line items
// after an edit. Line totals themselves are recomputed from quantity×price.
func Recompute(inv *models.Invoice) {
	var subtotal float64
	for i := range inv.LineItems {
		inv.LineItems[i].Total = Round2(inv.LineItems[i].Quantity * inv.LineItems[i].Price)
		subtotal += inv.LineItems[i].Total
	}
	inv.Subtotal = Round2(subtotal)
	inv.Tax = Round2(inv.Subtotal * inv.TaxRate)
	inv.Total = Round2(inv.Subtotal + inv.Tax)
}
