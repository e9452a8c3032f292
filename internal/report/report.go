// Package report computes dashboard aggregates over record snapshots.
//
// Every function reads fresh table state and recomputes from scratch.
// The tables are small enough that a full scan per request beats any
// cache invalidation scheme.
package report

import (
	"time"

	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
)

// Reporter runs read-only aggregations against a store.
type Reporter struct {
	store *store.Store
	now   func() time.Time
}

// New creates a Reporter. The clock defaults to time.Now.
func New(s *store.Store) *Reporter {
	return &Reporter{store: s, now: time.Now}
}

// NewWithClock creates a Reporter with a fixed time source for tests.
func NewWithClock(s *store.Store, now func() time.Time) *Reporter {
	return &Reporter{store: s, now: now}
}

// ProjectCompletion returns the mean progress across a project's
// modules, in [0,1]. A project with no modules is 0 complete.
func (r *Reporter) ProjectCompletion(projectID string) (float64, error) {
	if _, err := store.Get(r.store, record.Projects, projectID); err != nil {
		return 0, err
	}
	modules, err := store.AllWhere(r.store, record.Modules, func(m *record.Module) bool {
		return m.ProjectID == projectID
	})
	if err != nil {
		return 0, err
	}
	if len(modules) == 0 {
		return 0, nil
	}
	var sum float64
	for _, m := range modules {
		sum += m.Progress
	}
	return sum / float64(len(modules)), nil
}

// IssueFilter narrows IssueStats to a subset of issues. Zero values
// match everything.
type IssueFilter struct {
	ModuleID  string
	ProjectID string
	Status    record.IssueStatus
	Severity  record.Severity
}

// IssueStats are issue counts grouped three ways over one filtered set.
type IssueStats struct {
	Total      int                        `json:"total"`
	Open       int                        `json:"open"`
	BySeverity map[record.Severity]int    `json:"by_severity"`
	ByStatus   map[record.IssueStatus]int `json:"by_status"`
	ByCategory map[string]int             `json:"by_category"`
}

// IssueStats counts issues matching the filter, grouped by severity,
// status, and category. Resolved issues are excluded from Open but
// still counted in the group totals.
func (r *Reporter) IssueStats(filter IssueFilter) (*IssueStats, error) {
	var moduleIDs map[string]bool
	if filter.ProjectID != "" {
		modules, err := store.AllWhere(r.store, record.Modules, func(m *record.Module) bool {
			return m.ProjectID == filter.ProjectID
		})
		if err != nil {
			return nil, err
		}
		moduleIDs = make(map[string]bool, len(modules))
		for _, m := range modules {
			moduleIDs[m.ID] = true
		}
	}

	issues, err := store.AllWhere(r.store, record.Issues, func(i *record.Issue) bool {
		if filter.ModuleID != "" && i.ModuleID != filter.ModuleID {
			return false
		}
		if moduleIDs != nil && !moduleIDs[i.ModuleID] {
			return false
		}
		if filter.Status != "" && i.Status != filter.Status {
			return false
		}
		if filter.Severity != "" && i.Severity != filter.Severity {
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	stats := &IssueStats{
		BySeverity: make(map[record.Severity]int),
		ByStatus:   make(map[record.IssueStatus]int),
		ByCategory: make(map[string]int),
	}
	for _, i := range issues {
		stats.Total++
		if i.Status != record.IssueResolved {
			stats.Open++
		}
		stats.BySeverity[i.Severity]++
		stats.ByStatus[i.Status]++
		stats.ByCategory[i.Category]++
	}
	return stats, nil
}

// Throughput summarizes one user's task completion over a window.
type Throughput struct {
	UserID    string  `json:"user_id"`
	Assigned  int     `json:"assigned"`
	Done      int     `json:"done"`
	Overdue   int     `json:"overdue"`
	DoneRatio float64 `json:"done_ratio"`
}

// TaskThroughput computes the done/assigned ratio for a user's tasks
// due within the window ending now. A zero window considers every task.
func (r *Reporter) TaskThroughput(userID string, window time.Duration) (*Throughput, error) {
	now := r.now()
	cutoff := time.Time{}
	if window > 0 {
		cutoff = now.Add(-window)
	}

	tasks, err := store.AllWhere(r.store, record.Tasks, func(t *record.Task) bool {
		if t.AssignedTo != userID {
			return false
		}
		return cutoff.IsZero() || !t.DueDate.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}

	tp := &Throughput{UserID: userID}
	for _, t := range tasks {
		tp.Assigned++
		switch {
		case t.Status == record.TaskDone:
			tp.Done++
		case t.IsOverdue(now):
			tp.Overdue++
		}
	}
	if tp.Assigned > 0 {
		tp.DoneRatio = float64(tp.Done) / float64(tp.Assigned)
	}
	return tp, nil
}

// OverdueTasks returns every task whose due date has passed and which
// is not done, with the derived overdue status applied.
func (r *Reporter) OverdueTasks() ([]*record.Task, error) {
	now := r.now()
	tasks, err := store.AllWhere(r.store, record.Tasks, func(t *record.Task) bool {
		return t.IsOverdue(now)
	})
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		t.Status = record.TaskOverdue
	}
	return tasks, nil
}

// CategoryCounts returns issue counts per category across all modules.
func (r *Reporter) CategoryCounts() (map[string]int, error) {
	stats, err := r.IssueStats(IssueFilter{})
	if err != nil {
		return nil, err
	}
	return stats.ByCategory, nil
}

// ProjectSummary is the dashboard header row for one project.
type ProjectSummary struct {
	Project    *record.Project `json:"project"`
	Modules    int             `json:"modules"`
	Completion float64         `json:"completion"`
	OpenIssues int             `json:"open_issues"`
}

// Summaries builds the overview list shown on the dashboard landing
// page, one entry per project in table order.
func (r *Reporter) Summaries() ([]*ProjectSummary, error) {
	projects, err := store.Load(r.store, record.Projects)
	if err != nil {
		return nil, err
	}

	out := make([]*ProjectSummary, 0, len(projects))
	for _, p := range projects {
		completion, err := r.ProjectCompletion(p.ID)
		if err != nil {
			return nil, err
		}
		modules, err := store.AllWhere(r.store, record.Modules, func(m *record.Module) bool {
			return m.ProjectID == p.ID
		})
		if err != nil {
			return nil, err
		}
		stats, err := r.IssueStats(IssueFilter{ProjectID: p.ID})
		if err != nil {
			return nil, err
		}
		out = append(out, &ProjectSummary{
			Project:    p,
			Modules:    len(modules),
			Completion: completion,
			OpenIssues: stats.Open,
		})
	}
	return out, nil
}
