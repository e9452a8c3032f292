// Package seed populates a fresh data directory with the demo fixtures.
//
// The three accounts (one per role) are fixed demo credentials carried
// as fixture data for tests and local evaluation, not a security model.
package seed

import (
	"log/slog"
	"time"

	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
)

// Run seeds the store with sample data. It is idempotent: when the user
// table already has rows, seeding is skipped entirely.
func Run(s *store.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	users, err := store.Load(s, record.Users)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		logger.Info("seed skipped, users table already populated", "users", len(users))
		return nil
	}

	now := time.Now()

	fixtures := []*record.User{
		{Username: "john_doe", Password: "password123", Role: record.RoleOperator, FullName: "John Doe"},
		{Username: "jane_smith", Password: "pass456", Role: record.RoleInspector, FullName: "Jane Smith"},
		{Username: "mike_jones", Password: "secure789", Role: record.RoleManager, FullName: "Mike Jones"},
	}
	for _, u := range fixtures {
		if err := store.Save(s, record.Users, u); err != nil {
			return err
		}
	}
	operator, inspector := fixtures[0], fixtures[1]

	projects := []*record.Project{
		{
			Name:       "Residential Complex A",
			StartDate:  now.AddDate(0, -2, 0),
			TargetDate: now.AddDate(0, 4, 0),
			Status:     record.ProjectActive,
		},
		{
			Name:       "Commercial Building B",
			StartDate:  now.AddDate(0, 1, 0),
			TargetDate: now.AddDate(0, 8, 0),
			Status:     record.ProjectPlanning,
		},
	}
	for _, p := range projects {
		if err := store.Save(s, record.Projects, p); err != nil {
			return err
		}
	}

	modules := []*record.Module{
		{ProjectID: projects[0].ID, Name: "Module A101", AssignedTo: operator.ID, Status: record.ModuleInProgress, Progress: 0.4},
		{ProjectID: projects[0].ID, Name: "Module A102", AssignedTo: operator.ID, Status: record.ModuleNotStarted, Progress: 0},
		{ProjectID: projects[0].ID, Name: "Module A103", AssignedTo: operator.ID, Status: record.ModuleComplete, Progress: 1},
		{ProjectID: projects[1].ID, Name: "Module B201", AssignedTo: operator.ID, Status: record.ModuleNotStarted, Progress: 0},
	}
	for _, m := range modules {
		if err := store.Save(s, record.Modules, m); err != nil {
			return err
		}
	}

	issues := []*record.Issue{
		{
			ModuleID:  modules[0].ID,
			Severity:  record.SeverityHigh,
			Category:  "electrical",
			Status:    record.IssueOpen,
			CreatedBy: inspector.ID,
			CreatedAt: now.AddDate(0, 0, -3),
		},
		{
			ModuleID:  modules[2].ID,
			Severity:  record.SeverityLow,
			Category:  "finishing",
			Status:    record.IssueInReview,
			CreatedBy: inspector.ID,
			CreatedAt: now.AddDate(0, 0, -1),
		},
	}
	for _, i := range issues {
		if err := store.Save(s, record.Issues, i); err != nil {
			return err
		}
	}

	tasks := []*record.Task{
		{
			AssignedTo:  operator.ID,
			ModuleID:    modules[0].ID,
			DueDate:     now.AddDate(0, 0, 7),
			Status:      record.TaskInProgress,
			Description: "Rework junction box wiring on A101",
		},
		{
			AssignedTo:  operator.ID,
			ModuleID:    modules[1].ID,
			DueDate:     now.AddDate(0, 0, -2),
			Status:      record.TaskPending,
			Description: "Frame assembly for A102",
		},
		{
			AssignedTo:  inspector.ID,
			ModuleID:    modules[2].ID,
			DueDate:     now.AddDate(0, 0, 3),
			Status:      record.TaskPending,
			Description: "Final inspection of A103 finishing",
		},
	}
	for _, t := range tasks {
		if err := store.Save(s, record.Tasks, t); err != nil {
			return err
		}
	}

	logger.Info("seeded demo data",
		"users", len(fixtures),
		"projects", len(projects),
		"modules", len(modules),
		"issues", len(issues),
		"tasks", len(tasks))
	return nil
}
