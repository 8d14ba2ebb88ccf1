// Package tracker implements the time entry lifecycle: a running timer can be
// paused and resumed any number of times before it is stopped for good, and
// the elapsed duration is accumulated across those boundaries from absolute
// timestamps so a ticking display can recompute it every second without drift.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
)

// ErrInvalidTransition marks a pause/resume/stop that does not apply to the
// entry's current state. Callers that want the original's defensive-UI
// behavior treat it as a no-op rather than a failure.
var ErrInvalidTransition = errors.New("invalid timer transition")

// Elapsed returns the true elapsed duration of an entry at the given instant.
// Frozen (paused or stopped) entries report their accumulated duration
// unchanged; a running entry adds the time since it was last (re)started.
func Elapsed(e models.TimeEntry, now time.Time) time.Duration {
	acc := time.Duration(e.AccumulatedMS) * time.Millisecond
	if e.EndTime != nil || e.IsPaused {
		return acc
	}
	return acc + now.Sub(e.LastStartTime)
}

type Service struct {
	store *store.Store
	now   func() time.Time
}

func New(st *store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// WithClock substitutes the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start creates a new entry in the running state.
func (s *Service) Start(ctx context.Context, projectID, userID, description string) (models.TimeEntry, error) {
	now := s.now()
	entry := models.TimeEntry{
		ProjectID:     projectID,
		UserID:        userID,
		Description:   description,
		StartTime:     now,
		LastStartTime: now,
		EndTime:       nil,
		Invoiced:      false,
		IsPaused:      false,
		AccumulatedMS: 0,
	}
	if err := s.store.CreateTimeEntry(ctx, &entry); err != nil {
		return models.TimeEntry{}, fmt.Errorf("start timer: %w", err)
	}
	return entry, nil
}

// Pause folds the time since the last (re)start into the accumulated duration
// and freezes the entry. Legal only while running.
func (s *Service) Pause(ctx context.Context, entryID string) (models.TimeEntry, error) {
	entry, err := s.store.GetTimeEntry(ctx, entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if entry.IsPaused || entry.EndTime != nil {
		return entry, ErrInvalidTransition
	}
	now := s.now()
	entry.AccumulatedMS += now.Sub(entry.LastStartTime).Milliseconds()
	entry.IsPaused = true
	err = s.store.UpdateTimeEntry(ctx, entryID, map[string]any{
		"is_paused":      true,
		"accumulated_ms": entry.AccumulatedMS,
	})
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("pause timer: %w", err)
	}
	return entry, nil
}

// Resume restarts a paused entry. The accumulated duration is untouched; only
// the last-start timestamp moves.
func (s *Service) Resume(ctx context.Context, entryID string) (models.TimeEntry, error) {
	entry, err := s.store.GetTimeEntry(ctx, entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if !entry.IsPaused || entry.EndTime != nil {
		return entry, ErrInvalidTransition
	}
	now := s.now()
	entry.IsPaused = false
	entry.LastStartTime = now
	err = s.store.UpdateTimeEntry(ctx, entryID, map[string]any{
		"is_paused":       false,
		"last_start_time": now,
	})
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("resume timer: %w", err)
	}
	return entry, nil
}

// Stop ends an entry for good, from either the running or the paused state.
// A running entry first folds its open interval into the accumulated
// duration. Stopping an already stopped entry is an invalid transition and
// changes nothing.
func (s *Service) Stop(ctx context.Context, entryID string) (models.TimeEntry, error) {
	entry, err := s.store.GetTimeEntry(ctx, entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if entry.EndTime != nil {
		return entry, ErrInvalidTransition
	}
	now := s.now()
	if !entry.IsPaused {
		entry.AccumulatedMS += now.Sub(entry.LastStartTime).Milliseconds()
	}
	entry.EndTime = &now
	entry.IsPaused = false
	err = s.store.UpdateTimeEntry(ctx, entryID, map[string]any{
		"end_time":       now,
		"accumulated_ms": entry.AccumulatedMS,
		"is_paused":      false,
	})
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("stop timer: %w", err)
	}
	return entry, nil
}

// Restart starts a brand-new timer copying project and description from an
// existing (typically stopped) entry. The source entry is left untouched.
func (s *Service) Restart(ctx context.Context, entryID string) (models.TimeEntry, error) {
	entry, err := s.store.GetTimeEntry(ctx, entryID)
	if err != nil {
		return models.TimeEntry{}, err
	}
	return s.Start(ctx, entry.ProjectID, entry.UserID, entry.Description)
}

// ManualEntry backfills work that was never timed. Date is "2006-01-02".
type ManualEntry struct {
	ProjectID     string
	UserID        string
	Description   string
	Date          string
	DurationHours float64
}

// AddManual creates an already-stopped entry at a synthetic 09:00 local start
// on the given date, with end = start + duration.
func (s *Service) AddManual(ctx context.Context, m ManualEntry) (models.TimeEntry, error) {
	day, err := time.ParseInLocation("2006-01-02", m.Date, time.Local)
	if err != nil {
		return models.TimeEntry{}, fmt.Errorf("manual entry date: %w", err)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, time.Local)
	duration := time.Duration(m.DurationHours * float64(time.Hour))
	end := start.Add(duration)
	entry := models.TimeEntry{
		ProjectID:     m.ProjectID,
		UserID:        m.UserID,
		Description:   m.Description,
		StartTime:     start,
		LastStartTime: start,
		EndTime:       &end,
		Invoiced:      false,
		IsPaused:      false,
		AccumulatedMS: duration.Milliseconds(),
	}
	if err := s.store.CreateTimeEntry(ctx, &entry); err != nil {
		return models.TimeEntry{}, fmt.Errorf("manual entry: %w", err)
	}
	return entry, nil
}

// HasActiveEntries reports whether the user still has a running or paused
// timer; logout is refused while this holds.
func (s *Service) HasActiveEntries(ctx context.Context, userID string) (bool, error) {
	entries, err := s.store.ActiveEntries(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}
