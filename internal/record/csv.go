package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/volumod/tracker/internal/trackerr"
)

// Date and timestamp layouts used in the CSV tables. These spellings are
// part of the durable on-disk contract; other tooling reads these files.
const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Table describes one CSV-backed entity table: its file name, id prefix,
// fixed column set, and row codec. Column names are a durable contract
// and must not be renamed.
type Table[T Row] struct {
	Name     string
	IDPrefix string
	Columns  []string
	Encode   func(T) []string
	Decode   func([]string) (T, error)
}

// Users is the table of seeded accounts.
var Users = Table[*User]{
	Name:     "users",
	IDPrefix: "U",
	Columns:  []string{"user_id", "username", "password", "role", "full_name", "rev"},
	Encode: func(u *User) []string {
		return []string{u.ID, u.Username, u.Password, string(u.Role), u.FullName, strconv.Itoa(u.Rev)}
	},
	Decode: func(f []string) (*User, error) {
		rev, err := parseRev("users", f[5])
		if err != nil {
			return nil, err
		}
		return &User{
			ID:       f[0],
			Username: f[1],
			Password: f[2],
			Role:     Role(f[3]),
			FullName: f[4],
			Rev:      rev,
		}, nil
	},
}

// Projects is the table of construction projects.
var Projects = Table[*Project]{
	Name:     "projects",
	IDPrefix: "P",
	Columns:  []string{"project_id", "name", "start_date", "target_date", "status", "rev"},
	Encode: func(p *Project) []string {
		return []string{
			p.ID, p.Name,
			formatDate(p.StartDate), formatDate(p.TargetDate),
			string(p.Status), strconv.Itoa(p.Rev),
		}
	},
	Decode: func(f []string) (*Project, error) {
		start, err := parseDate("projects", "start_date", f[2])
		if err != nil {
			return nil, err
		}
		target, err := parseDate("projects", "target_date", f[3])
		if err != nil {
			return nil, err
		}
		rev, err := parseRev("projects", f[5])
		if err != nil {
			return nil, err
		}
		return &Project{
			ID:         f[0],
			Name:       f[1],
			StartDate:  start,
			TargetDate: target,
			Status:     ProjectStatus(f[4]),
			Rev:        rev,
		}, nil
	},
}

// Modules is the table of physical modules under production.
var Modules = Table[*Module]{
	Name:     "modules",
	IDPrefix: "M",
	Columns:  []string{"module_id", "project_id", "name", "assigned_to", "status", "progress", "rev"},
	Encode: func(m *Module) []string {
		return []string{
			m.ID, m.ProjectID, m.Name, m.AssignedTo,
			string(m.Status),
			strconv.FormatFloat(m.Progress, 'f', -1, 64),
			strconv.Itoa(m.Rev),
		}
	},
	Decode: func(f []string) (*Module, error) {
		progress, err := strconv.ParseFloat(f[5], 64)
		if err != nil {
			return nil, trackerr.SchemaError("modules", fmt.Sprintf("progress %q is not a number", f[5]))
		}
		rev, err := parseRev("modules", f[6])
		if err != nil {
			return nil, err
		}
		return &Module{
			ID:         f[0],
			ProjectID:  f[1],
			Name:       f[2],
			AssignedTo: f[3],
			Status:     ModuleStatus(f[4]),
			Progress:   progress,
			Rev:        rev,
		}, nil
	},
}

// Issues is the table of quality issues.
var Issues = Table[*Issue]{
	Name:     "issues",
	IDPrefix: "I",
	Columns:  []string{"issue_id", "module_id", "severity", "category", "status", "created_by", "created_at", "resolved_at", "rev"},
	Encode: func(i *Issue) []string {
		resolved := ""
		if i.ResolvedAt != nil {
			resolved = i.ResolvedAt.Format(timeLayout)
		}
		return []string{
			i.ID, i.ModuleID,
			string(i.Severity), i.Category, string(i.Status),
			i.CreatedBy, i.CreatedAt.Format(timeLayout), resolved,
			strconv.Itoa(i.Rev),
		}
	},
	Decode: func(f []string) (*Issue, error) {
		created, err := parseTime("issues", "created_at", f[6])
		if err != nil {
			return nil, err
		}
		var resolved *time.Time
		if f[7] != "" {
			ts, err := parseTime("issues", "resolved_at", f[7])
			if err != nil {
				return nil, err
			}
			resolved = &ts
		}
		rev, err := parseRev("issues", f[8])
		if err != nil {
			return nil, err
		}
		return &Issue{
			ID:         f[0],
			ModuleID:   f[1],
			Severity:   Severity(f[2]),
			Category:   f[3],
			Status:     IssueStatus(f[4]),
			CreatedBy:  f[5],
			CreatedAt:  created,
			ResolvedAt: resolved,
			Rev:        rev,
		}, nil
	},
}

// Tasks is the table of work items.
var Tasks = Table[*Task]{
	Name:     "tasks",
	IDPrefix: "T",
	Columns:  []string{"task_id", "assigned_to", "module_id", "due_date", "status", "description", "rev"},
	Encode: func(t *Task) []string {
		return []string{
			t.ID, t.AssignedTo, t.ModuleID,
			formatDate(t.DueDate),
			string(t.Status), t.Description,
			strconv.Itoa(t.Rev),
		}
	},
	Decode: func(f []string) (*Task, error) {
		due, err := parseDate("tasks", "due_date", f[3])
		if err != nil {
			return nil, err
		}
		rev, err := parseRev("tasks", f[6])
		if err != nil {
			return nil, err
		}
		return &Task{
			ID:          f[0],
			AssignedTo:  f[1],
			ModuleID:    f[2],
			DueDate:     due,
			Status:      TaskStatus(f[4]),
			Description: f[5],
			Rev:         rev,
		}, nil
	},
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(table, column, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, trackerr.SchemaError(table, fmt.Sprintf("%s %q is not a %s date", column, v, dateLayout))
	}
	return t, nil
}

func parseTime(table, column, v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, trackerr.SchemaError(table, fmt.Sprintf("%s %q is not an RFC 3339 timestamp", column, v))
	}
	return t, nil
}

func parseRev(table, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	rev, err := strconv.Atoi(v)
	if err != nil || rev < 0 {
		return 0, trackerr.SchemaError(table, fmt.Sprintf("rev %q is not a non-negative integer", v))
	}
	return rev, nil
}
