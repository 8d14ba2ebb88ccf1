package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a team member. Time entries and project budgets reference users;
// a user with time entries cannot be deleted.
type User struct {
	ID              string   `gorm:"primaryKey" json:"id"`
	Name            string   `gorm:"not null" json:"name"`
	Email           string   `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash    string   `gorm:"not null" json:"-"`
	Role            string   `gorm:"not null;default:'member'" json:"role"`
	MonthlyHourGoal *float64 `json:"monthlyHourGoal,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
