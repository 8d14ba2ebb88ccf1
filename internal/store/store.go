// Package store is the data access facade: every read is a full snapshot of
// the five collections, every multi-document side effect is a single
// transaction so partial application cannot occur.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/onlinelabs/urenwerk/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrHasTimeEntries = errors.New("user still has time entries")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// Snapshot is the full in-memory view. It is re-fetched after every mutation
// rather than patched incrementally; derived figures are always recomputed
// from it so they cannot drift.
type Snapshot struct {
	Users       []models.User      `json:"users"`
	Clients     []models.Client    `json:"clients"`
	Projects    []models.Project   `json:"projects"`
	TimeEntries []models.TimeEntry `json:"timeEntries"`
	Invoices    []models.Invoice   `json:"invoices"`
}

// FetchAll reads all five collections. Time entries come newest-first and
// clients alphabetically, matching what every consumer wants.
func (s *Store) FetchAll(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	tx := s.db.WithContext(ctx)
	if err := tx.Order("email").Find(&snap.Users).Error; err != nil {
		return snap, err
	}
	if err := tx.Order("name").Find(&snap.Clients).Error; err != nil {
		return snap, err
	}
	if err := tx.Preload("Budgets").Order("name").Find(&snap.Projects).Error; err != nil {
		return snap, err
	}
	if err := tx.Order("start_time desc").Find(&snap.TimeEntries).Error; err != nil {
		return snap, err
	}
	if err := tx.Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Entries").Order("number desc").Find(&snap.Invoices).Error; err != nil {
		return snap, err
	}
	return snap, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return u, notFound(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "lower(email) = lower(?)", email).Error
	return u, notFound(err)
}

func (s *Store) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteUser refuses while time entries reference the user, and otherwise
// removes the user together with their budget allocations in one batch.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entryCount int64
		if err := tx.Model(&models.TimeEntry{}).Where("user_id = ?", id).Count(&entryCount).Error; err != nil {
			return err
		}
		if entryCount > 0 {
			return ErrHasTimeEntries
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.UserBudget{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Clients ---

func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) UpdateClient(ctx context.Context, id string, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteClientCascade removes the client, its projects, those projects' time
// entries and budgets, and the client's invoices, atomically.
func (s *Store) DeleteClientCascade(ctx context.Context, clientID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projectIDs []string
		if err := tx.Model(&models.Project{}).Where("client_id = ?", clientID).Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		if len(projectIDs) > 0 {
			if err := tx.Where("project_id IN ?", projectIDs).Delete(&models.TimeEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id IN ?", projectIDs).Delete(&models.UserBudget{}).Error; err != nil {
				return err
			}
			if err := tx.Where("client_id = ?", clientID).Delete(&models.Project{}).Error; err != nil {
				return err
			}
		}
		var invoiceIDs []string
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", clientID).Pluck("id", &invoiceIDs).Error; err != nil {
			return err
		}
		if len(invoiceIDs) > 0 {
			if err := tx.Where("invoice_id IN ?", invoiceIDs).Delete(&models.InvoiceLineItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("invoice_id IN ?", invoiceIDs).Delete(&models.InvoiceEntry{}).Error; err != nil {
				return err
			}
			if err := tx.Where("client_id = ?", clientID).Delete(&models.Invoice{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Client{}, "id = ?", clientID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Projects ---

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).Preload("Budgets").First(&p, "id = ?", id).Error
	return p, notFound(err)
}

// UpdateProject rewrites the scalar fields and, when budgets is non-nil,
// replaces the whole per-user allocation set (the original stores budgets as
// one embedded array, so partial budget edits do not exist).
func (s *Store) UpdateProject(ctx context.Context, id string, fields map[string]any, budgets []models.UserBudget) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := tx.Model(&models.Project{}).Where("id = ?", id).Updates(fields).Error; err != nil {
				return err
			}
		}
		if budgets == nil {
			return nil
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.UserBudget{}).Error; err != nil {
			return err
		}
		for i := range budgets {
			budgets[i].ID = 0
			budgets[i].ProjectID = id
			if err := tx.Create(&budgets[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// --- Time entries ---

func (s *Store) CreateTimeEntry(ctx context.Context, e *models.TimeEntry) error {
	return s.db.WithContext(ctx).Create(e).Error
}

func (s *Store) GetTimeEntry(ctx context.Context, id string) (models.TimeEntry, error) {
	var e models.TimeEntry
	err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return e, notFound(err)
}

func (s *Store) UpdateTimeEntry(ctx context.Context, id string, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&models.TimeEntry{}).Where("id = ?", id).Updates(fields).Error
}

func (s *Store) DeleteTimeEntry(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.TimeEntry{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveEntries returns the user's running or paused entries.
func (s *Store) ActiveEntries(ctx context.Context, userID string) ([]models.TimeEntry, error) {
	var entries []models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND end_time IS NULL", userID).
		Order("start_time desc").Find(&entries).Error
	return entries, err
}

// ResetTimeEntries deletes every time entry in one batch.
func (s *Store) ResetTimeEntries(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("1 = 1").Delete(&models.TimeEntry{}).Error
}

// --- Invoices ---

func (s *Store) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Entries").First(&inv, "id = ?", id).Error
	return inv, notFound(err)
}

// CreateInvoice persists the invoice and flips invoiced=true on every billed
// entry in the same transaction, so an entry can never be marked invoiced
// without the invoice existing.
func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		for _, link := range inv.Entries {
			if err := tx.Model(&models.TimeEntry{}).Where("id = ?", link.TimeEntryID).
				Update("invoiced", true).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateInvoice replaces the invoice's editable fields and its full line item
// set. Totals are expected to be recomputed by the caller before this runs.
func (s *Store) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{
			"subject": inv.Subject, "issue_date": inv.IssueDate, "due_date": inv.DueDate,
			"subtotal": inv.Subtotal, "tax": inv.Tax, "tax_rate": inv.TaxRate, "total": inv.Total,
		}
		res := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLineItem{}).Error; err != nil {
			return err
		}
		for i := range inv.LineItems {
			inv.LineItems[i].ID = 0
			inv.LineItems[i].InvoiceID = inv.ID
			inv.LineItems[i].Position = i
			if err := tx.Create(&inv.LineItems[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteInvoice removes the invoice and marks its billed entries uninvoiced
// again, all in one batch. Entries that no longer exist are skipped (zero rows
// affected), so the deletion still succeeds.
func (s *Store) DeleteInvoice(ctx context.Context, invoiceID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var links []models.InvoiceEntry
		if err := tx.Where("invoice_id = ?", invoiceID).Find(&links).Error; err != nil {
			return err
		}
		for _, link := range links {
			if err := tx.Model(&models.TimeEntry{}).Where("id = ?", link.TimeEntryID).
				Update("invoiced", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceLineItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Invoice{}, "id = ?", invoiceID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
