package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client owns projects and invoices. Deleting a client cascades over its
// projects, those projects' time entries, and its invoices in one batch.
type Client struct {
	ID            string `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"not null" json:"name"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Address       string `json:"address"`
	ZipCode       string `json:"zipCode"`
	City          string `json:"city"`
	BTWID         string `gorm:"column:btw_id" json:"btwId,omitempty"` // BTW-nummer (NL VAT id)
	KVK           string `gorm:"column:kvk" json:"kvk,omitempty"`      // KvK registration number
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
