// Package reports derives revenue, budget and goal figures from the full time
// entry collection. Everything here is a pure function over a snapshot and is
// recomputed from scratch on every read; nothing is cached incrementally.
//
// Entries whose project, client or user can no longer be resolved are skipped,
// never an error: a cascade delete elsewhere must not break reporting.
package reports

import (
	"sort"
	"time"

	"github.com/onlinelabs/urenwerk/internal/models"
)

// --- calendar windows ---

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the Monday midnight opening t's week.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := int(day.Weekday()) - 1
	if offset < 0 { // Sunday
		offset = 6
	}
	return day.AddDate(0, 0, -offset)
}

// MonthRange returns [first of month, first of next month).
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

func projectIndex(projects []models.Project) map[string]models.Project {
	idx := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		idx[p.ID] = p
	}
	return idx
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// Turnover sums hours×rate over finished entries whose start falls in
// [from, to). Entries on unresolvable projects are skipped.
func Turnover(entries []models.TimeEntry, projects []models.Project, from, to time.Time) float64 {
	idx := projectIndex(projects)
	var total float64
	for _, e := range entries {
		if !e.Finished() || !inRange(e.StartTime, from, to) {
			continue
		}
		project, ok := idx[e.ProjectID]
		if !ok {
			continue
		}
		total += e.Hours() * project.Rate
	}
	return total
}

// TurnoverForUser is Turnover restricted to one user's entries.
func TurnoverForUser(entries []models.TimeEntry, projects []models.Project, userID string, from, to time.Time) float64 {
	filtered := entries[:0:0]
	for _, e := range entries {
		if e.UserID == userID {
			filtered = append(filtered, e)
		}
	}
	return Turnover(filtered, projects, from, to)
}

// --- monthly hour goal ---

type GoalStats struct {
	HasGoal        bool    `json:"hasGoal"`
	Goal           float64 `json:"goal"`
	LoggedHours    float64 `json:"loggedHours"`
	RemainingHours float64 `json:"remainingHours"`
	Progress       float64 `json:"progress"` // percent, not clamped
}

// GoalProgress reports a user's progress against their monthly hour goal for
// the calendar month containing ref. A missing or zero goal yields the
// explicit no-goal state instead of a division by zero.
func GoalProgress(user models.User, entries []models.TimeEntry, ref time.Time) GoalStats {
	from, to := MonthRange(ref)
	var logged float64
	for _, e := range entries {
		if e.UserID == user.ID && e.Finished() && inRange(e.StartTime, from, to) {
			logged += e.Hours()
		}
	}
	if user.MonthlyHourGoal == nil || *user.MonthlyHourGoal <= 0 {
		return GoalStats{HasGoal: false, LoggedHours: logged}
	}
	goal := *user.MonthlyHourGoal
	return GoalStats{
		HasGoal:        true,
		Goal:           goal,
		LoggedHours:    logged,
		RemainingHours: goal - logged,
		Progress:       logged / goal * 100,
	}
}

// --- per-user per-project budget ---

type BudgetStatus struct {
	BudgetHours    float64 `json:"budgetHours"`
	ConsumedHours  float64 `json:"consumedHours"`
	RemainingHours float64 `json:"remainingHours"`
	OverBudget     bool    `json:"overBudget"`
}

// BudgetRemaining reports how much of a user's hour allocation on a project is
// left. Only finished, uninvoiced entries count as consumption: an invoiced
// entry is billed work, already settled against the budget, though it still
// counts toward realized turnover elsewhere. Returns false when the project
// tracks no budget for the user.
func BudgetRemaining(project models.Project, userID string, entries []models.TimeEntry) (BudgetStatus, bool) {
	budget, ok := project.BudgetFor(userID)
	if !ok {
		return BudgetStatus{}, false
	}
	var consumed float64
	for _, e := range entries {
		if e.ProjectID == project.ID && e.UserID == userID && e.Finished() && !e.Invoiced {
			consumed += e.Hours()
		}
	}
	remaining := budget - consumed
	return BudgetStatus{
		BudgetHours:    budget,
		ConsumedHours:  consumed,
		RemainingHours: remaining,
		OverBudget:     remaining < 0,
	}, true
}

// --- top clients ---

type ClientHours struct {
	ClientID string  `json:"clientId"`
	Name     string  `json:"name"`
	Hours    float64 `json:"hours"`
}

// TopClients ranks clients by a user's finished hours in ref's month and
// returns the first n. Ties keep a stable alphabetical order.
func TopClients(entries []models.TimeEntry, projects []models.Project, clients []models.Client, userID string, ref time.Time, n int) []ClientHours {
	from, to := MonthRange(ref)
	projIdx := projectIndex(projects)
	clientIdx := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		clientIdx[c.ID] = c
	}
	byClient := map[string]*ClientHours{}
	for _, e := range entries {
		if e.UserID != userID || !e.Finished() || !inRange(e.StartTime, from, to) {
			continue
		}
		project, ok := projIdx[e.ProjectID]
		if !ok {
			continue
		}
		client, ok := clientIdx[project.ClientID]
		if !ok {
			continue
		}
		row, seen := byClient[client.ID]
		if !seen {
			row = &ClientHours{ClientID: client.ID, Name: client.Name}
			byClient[client.ID] = row
		}
		row.Hours += e.Hours()
	}
	ranked := make([]ClientHours, 0, len(byClient))
	for _, row := range byClient {
		ranked = append(ranked, *row)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Hours != ranked[j].Hours {
			return ranked[i].Hours > ranked[j].Hours
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// --- prognose ---

type UserPrognose struct {
	UserID         string  `json:"userId"`
	Name           string  `json:"name"`
	BudgetedHours  float64 `json:"budgetedHours"`
	LoggedHours    float64 `json:"loggedHours"` // uninvoiced, all time
	RemainingHours float64 `json:"remainingHours"`
	Progress       float64 `json:"progress"` // percent, clamped to [0,100]
	OverBudget     bool    `json:"overBudget"`
}

type ProjectPrognose struct {
	ProjectID         string  `json:"projectId"`
	Name              string  `json:"name"`
	ClientName        string  `json:"clientName"`
	TotalBudgetValue  float64 `json:"totalBudgetValue"`
	MonthRevenue      float64 `json:"monthRevenue"`      // realized in ref's month, invoiced or not
	UninvoicedRevenue float64 `json:"uninvoicedRevenue"` // all-time, not yet billed
	RemainingRevenue  float64 `json:"remainingRevenue"`  // may go negative
	Progress          float64 `json:"progress"`          // percent, clamped to [0,100]
	OverBudget        bool    `json:"overBudget"`
}

type PrognoseReport struct {
	Month                string            `json:"month"`
	TotalBudgetRevenue   float64           `json:"totalBudgetRevenue"`
	MonthlyLoggedRevenue float64           `json:"monthlyLoggedRevenue"`
	TotalBudgetHours     float64           `json:"totalBudgetHours"`
	TotalRemainingHours  float64           `json:"totalRemainingHours"`
	Users                []UserPrognose    `json:"users"`
	Projects             []ProjectPrognose `json:"projects"`
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Prognose compares budgeted revenue against realized and still-unbilled
// revenue for ref's month. Consumption uses uninvoiced finished entries only;
// the monthly realisation figure uses all finished entries — the asymmetry is
// intentional (budget tracks work not yet billed, turnover tracks work
// performed).
func Prognose(users []models.User, clients []models.Client, projects []models.Project, entries []models.TimeEntry, ref time.Time) PrognoseReport {
	from, to := MonthRange(ref)

	finished := make([]models.TimeEntry, 0, len(entries))
	uninvoiced := make([]models.TimeEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Finished() {
			continue
		}
		finished = append(finished, e)
		if !e.Invoiced {
			uninvoiced = append(uninvoiced, e)
		}
	}

	report := PrognoseReport{Month: ref.Format("2006-01")}

	var uninvoicedHours float64
	for _, e := range uninvoiced {
		uninvoicedHours += e.Hours()
	}
	for _, p := range projects {
		hours := p.TotalBudgetHours()
		report.TotalBudgetHours += hours
		report.TotalBudgetRevenue += hours * p.Rate
	}
	report.TotalRemainingHours = report.TotalBudgetHours - uninvoicedHours
	report.MonthlyLoggedRevenue = Turnover(finished, projects, from, to)

	// per-user rows, skipping users without any allocation
	for _, u := range users {
		var budgeted float64
		for _, p := range projects {
			if hours, ok := p.BudgetFor(u.ID); ok {
				budgeted += hours
			}
		}
		if budgeted == 0 {
			continue
		}
		var logged float64
		for _, e := range uninvoiced {
			if e.UserID == u.ID {
				logged += e.Hours()
			}
		}
		remaining := budgeted - logged
		report.Users = append(report.Users, UserPrognose{
			UserID:         u.ID,
			Name:           u.Name,
			BudgetedHours:  budgeted,
			LoggedHours:    logged,
			RemainingHours: remaining,
			Progress:       clampPercent(logged / budgeted * 100),
			OverBudget:     remaining < 0,
		})
	}

	clientIdx := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		clientIdx[c.ID] = c
	}

	// per-project rows for budgeted projects only
	for _, p := range projects {
		if len(p.Budgets) == 0 {
			continue
		}
		totalValue := p.TotalBudgetHours() * p.Rate
		var monthRevenue, openRevenue float64
		for _, e := range finished {
			if e.ProjectID != p.ID {
				continue
			}
			revenue := e.Hours() * p.Rate
			if inRange(e.StartTime, from, to) {
				monthRevenue += revenue
			}
			if !e.Invoiced {
				openRevenue += revenue
			}
		}
		remaining := totalValue - openRevenue
		clientName := "Onbekende klant"
		if c, ok := clientIdx[p.ClientID]; ok {
			clientName = c.Name
		}
		var progress float64
		if totalValue > 0 {
			progress = clampPercent(openRevenue / totalValue * 100)
		}
		report.Projects = append(report.Projects, ProjectPrognose{
			ProjectID:         p.ID,
			Name:              p.Name,
			ClientName:        clientName,
			TotalBudgetValue:  totalValue,
			MonthRevenue:      monthRevenue,
			UninvoicedRevenue: openRevenue,
			RemainingRevenue:  remaining,
			Progress:          progress,
			OverBudget:        remaining < 0,
		})
	}
	sort.Slice(report.Projects, func(i, j int) bool {
		return report.Projects[i].TotalBudgetValue > report.Projects[j].TotalBudgetValue
	})
	return report
}
