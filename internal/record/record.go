package record

import (
	"fmt"
	"time"

	"github.com/volumod/tracker/internal/trackerr"
)

// Row is implemented by every entity persisted to a CSV table.
type Row interface {
	// RowID returns the entity's unique id within its table.
	RowID() string
	// SetRowID assigns the id at creation time.
	SetRowID(id string)
	// Revision returns the optimistic-concurrency revision counter.
	Revision() int
	// SetRevision sets the revision counter.
	SetRevision(rev int)
	// Validate checks enum membership and cross-field invariants.
	Validate() error
}

// User is a seeded account. Credentials are compared verbatim; this is
// demo fixture data, not an authentication model.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
	Rev      int    `json:"rev"`
}

func (u *User) RowID() string       { return u.ID }
func (u *User) SetRowID(id string)  { u.ID = id }
func (u *User) Revision() int       { return u.Rev }
func (u *User) SetRevision(rev int) { u.Rev = rev }

// Validate checks the user row invariants.
func (u *User) Validate() error {
	if u.Username == "" {
		return trackerr.Validation("user has no username", "username must be non-empty")
	}
	if !IsValidRole(u.Role) {
		return trackerr.Validation(
			fmt.Sprintf("user %s has unknown role", u.Username),
			fmt.Sprintf("%q is not one of %v", u.Role, ValidRoles()))
	}
	return nil
}

// Project is a modular-construction project owning zero or more modules.
type Project struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	StartDate  time.Time     `json:"start_date"`
	TargetDate time.Time     `json:"target_date"`
	Status     ProjectStatus `json:"status"`
	Rev        int           `json:"rev"`
}

func (p *Project) RowID() string       { return p.ID }
func (p *Project) SetRowID(id string)  { p.ID = id }
func (p *Project) Revision() int       { return p.Rev }
func (p *Project) SetRevision(rev int) { p.Rev = rev }

// Validate checks the project row invariants.
func (p *Project) Validate() error {
	if p.Name == "" {
		return trackerr.Validation("project has no name", "name must be non-empty")
	}
	if !IsValidProjectStatus(p.Status) {
		return trackerr.Validation(
			fmt.Sprintf("project %s has unknown status", p.ID),
			fmt.Sprintf("%q is not one of %v", p.Status, ValidProjectStatuses()))
	}
	return nil
}

// Module is a physical unit of a project being tracked for progress.
// AssignedTo is the operator responsible for the module's production.
type Module struct {
	ID         string       `json:"id"`
	ProjectID  string       `json:"project_id"`
	Name       string       `json:"name"`
	AssignedTo string       `json:"assigned_to"`
	Status     ModuleStatus `json:"status"`
	Progress   float64      `json:"progress"`
	Rev        int          `json:"rev"`
}

func (m *Module) RowID() string       { return m.ID }
func (m *Module) SetRowID(id string)  { m.ID = id }
func (m *Module) Revision() int       { return m.Rev }
func (m *Module) SetRevision(rev int) { m.Rev = rev }

// Validate checks the module row invariants.
func (m *Module) Validate() error {
	if m.ProjectID == "" {
		return trackerr.Validation(
			fmt.Sprintf("module %s has no project", m.ID),
			"project_id must reference an existing project")
	}
	if !IsValidModuleStatus(m.Status) {
		return trackerr.Validation(
			fmt.Sprintf("module %s has unknown status", m.ID),
			fmt.Sprintf("%q is not one of %v", m.Status, ValidModuleStatuses()))
	}
	if m.Progress < 0 || m.Progress > 1 {
		return trackerr.Validation(
			fmt.Sprintf("module %s progress out of range", m.ID),
			fmt.Sprintf("progress must be within [0,1], got %g", m.Progress))
	}
	return nil
}

// Issue is a flagged quality defect associated with a module.
type Issue struct {
	ID         string      `json:"id"`
	ModuleID   string      `json:"module_id"`
	Severity   Severity    `json:"severity"`
	Category   string      `json:"category"`
	Status     IssueStatus `json:"status"`
	CreatedBy  string      `json:"created_by"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
	Rev        int         `json:"rev"`
}

func (i *Issue) RowID() string       { return i.ID }
func (i *Issue) SetRowID(id string)  { i.ID = id }
func (i *Issue) Revision() int       { return i.Rev }
func (i *Issue) SetRevision(rev int) { i.Rev = rev }

// Validate checks the issue row invariants, including that resolved_at
// is set if and only if the status is resolved.
func (i *Issue) Validate() error {
	if i.ModuleID == "" {
		return trackerr.Validation(
			fmt.Sprintf("issue %s has no module", i.ID),
			"module_id must reference an existing module")
	}
	if !IsValidSeverity(i.Severity) {
		return trackerr.Validation(
			fmt.Sprintf("issue %s has unknown severity", i.ID),
			fmt.Sprintf("%q is not one of %v", i.Severity, ValidSeverities()))
	}
	if !IsValidIssueStatus(i.Status) {
		return trackerr.Validation(
			fmt.Sprintf("issue %s has unknown status", i.ID),
			fmt.Sprintf("%q is not one of %v", i.Status, ValidIssueStatuses()))
	}
	if i.Status == IssueResolved && i.ResolvedAt == nil {
		return trackerr.Validation(
			fmt.Sprintf("issue %s resolved without resolved_at", i.ID),
			"a resolved issue must carry its resolution timestamp")
	}
	if i.Status != IssueResolved && i.ResolvedAt != nil {
		return trackerr.Validation(
			fmt.Sprintf("issue %s has resolved_at but is not resolved", i.ID),
			fmt.Sprintf("status is %q", i.Status))
	}
	return nil
}

// Task is a work item assigned to a user, optionally tied to a module.
type Task struct {
	ID          string     `json:"id"`
	AssignedTo  string     `json:"assigned_to"`
	ModuleID    string     `json:"module_id,omitempty"` // optional back-reference
	DueDate     time.Time  `json:"due_date"`
	Status      TaskStatus `json:"status"`
	Description string     `json:"description"`
	Rev         int        `json:"rev"`
}

func (t *Task) RowID() string       { return t.ID }
func (t *Task) SetRowID(id string)  { t.ID = id }
func (t *Task) Revision() int       { return t.Rev }
func (t *Task) SetRevision(rev int) { t.Rev = rev }

// Validate checks the task row invariants.
func (t *Task) Validate() error {
	if t.AssignedTo == "" {
		return trackerr.Validation(
			fmt.Sprintf("task %s has no assignee", t.ID),
			"assigned_to must reference an existing user")
	}
	if !IsValidTaskStatus(t.Status) {
		return trackerr.Validation(
			fmt.Sprintf("task %s has unknown status", t.ID),
			fmt.Sprintf("%q is not one of %v", t.Status, ValidTaskStatuses()))
	}
	return nil
}

// IsOverdue reports whether the task's due date has passed and the task
// is not done. Overdue is a derived state, not a persisted one.
// Due dates carry date precision, so the comparison is day against day:
// a task due today is not overdue until tomorrow.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate.IsZero() || t.Status == TaskDone {
		return false
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t.DueDate.Before(today)
}

// EffectiveStatus returns the status the presentation layer should show:
// the stored status, or overdue when the due date has passed.
func (t *Task) EffectiveStatus(now time.Time) TaskStatus {
	if t.IsOverdue(now) {
		return TaskOverdue
	}
	return t.Status
}
