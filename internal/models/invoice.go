package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoicing models
type Invoice struct {
	ID        string            `gorm:"primaryKey" json:"id"`
	Number    string            `gorm:"not null;uniqueIndex" json:"number"`
	ClientID  string            `gorm:"not null;index" json:"clientId"`
	ProjectID string            `gorm:"not null;index" json:"projectId"`
	Subject   string            `json:"subject"`
	IssueDate time.Time         `gorm:"not null" json:"issueDate"`
	DueDate   time.Time         `gorm:"not null" json:"dueDate"`
	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lineItems"`
	Subtotal  float64           `gorm:"not null" json:"subtotal"`
	Tax       float64           `gorm:"not null" json:"tax"`
	TaxRate   float64           `gorm:"not null" json:"taxRate"` // 0.21 for 21%, 0 for reverse charge
	Total     float64           `gorm:"not null" json:"total"`
	Entries   []InvoiceEntry    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"-"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// TimeEntryIDs lists the entries folded into this invoice, for reversal when
// the invoice is deleted.
func (i *Invoice) TimeEntryIDs() []string {
	ids := make([]string, 0, len(i.Entries))
	for _, e := range i.Entries {
		ids = append(ids, e.TimeEntryID)
	}
	return ids
}

type InvoiceLineItem struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	InvoiceID   string  `gorm:"not null;index" json:"-"`
	Position    int     `gorm:"not null" json:"-"` // preserves generation order
	Description string  `gorm:"not null" json:"description"`
	Quantity    float64 `gorm:"not null" json:"quantity"`
	Price       float64 `gorm:"not null" json:"price"`
	Total       float64 `gorm:"not null" json:"total"`
}

// InvoiceEntry links an invoice to a time entry it billed.
type InvoiceEntry struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	InvoiceID   string `gorm:"not null;index" json:"-"`
	TimeEntryID string `gorm:"not null;index" json:"timeEntryId"`
}
