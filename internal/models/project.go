package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project belongs to exactly one client and carries the hourly rate used for
// every revenue computation. Budgets is a sparse per-user allocation of hours;
// a missing row means no budget is tracked for that user on this project.
type Project struct {
	ID       string       `gorm:"primaryKey" json:"id"`
	Name     string       `gorm:"not null" json:"name"`
	ClientID string       `gorm:"not null;index" json:"clientId"`
	Rate     float64      `gorm:"not null" json:"rate"` // EUR per hour
	Budgets  []UserBudget `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"userBudgets"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BudgetFor returns the budgeted hours for a user, if any.
func (p *Project) BudgetFor(userID string) (float64, bool) {
	for _, b := range p.Budgets {
		if b.UserID == userID {
			return b.Hours, true
		}
	}
	return 0, false
}

// TotalBudgetHours sums all per-user allocations on the project.
func (p *Project) TotalBudgetHours() float64 {
	var sum float64
	for _, b := range p.Budgets {
		sum += b.Hours
	}
	return sum
}

type UserBudget struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	ProjectID string  `gorm:"not null;index" json:"-"`
	UserID    string  `gorm:"not null;index" json:"userId"`
	Hours     float64 `gorm:"not null" json:"hours"`
}
