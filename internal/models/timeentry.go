package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeEntry describes one span of tracked work.
//
// EndTime == nil means the entry is active (running or paused).
// AccumulatedMS is the authoritative elapsed time while paused or after stop;
// while running, true elapsed = AccumulatedMS + (now - LastStartTime).
type TimeEntry struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	ProjectID     string     `gorm:"not null;index" json:"projectId"`
	UserID        string     `gorm:"not null;index" json:"userId"`
	Description   string     `gorm:"not null" json:"description"`
	StartTime     time.Time  `gorm:"not null" json:"startTime"`     // first start of the timer
	EndTime       *time.Time `json:"endTime"`                       // final stop, nil while active
	Invoiced      bool       `gorm:"not null;default:false" json:"invoiced"`
	IsPaused      bool       `gorm:"not null;default:false" json:"isPaused"`
	AccumulatedMS int64      `gorm:"column:accumulated_ms;not null;default:0" json:"accumulatedDuration"`
	LastStartTime time.Time  `gorm:"not null" json:"lastStartTime"` // last (re)start
}

func (e *TimeEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Finished reports whether the entry has been stopped.
func (e *TimeEntry) Finished() bool { return e.EndTime != nil }

// Hours converts the accumulated duration to decimal hours.
func (e *TimeEntry) Hours() float64 {
	return float64(e.AccumulatedMS) / 3_600_000
}
