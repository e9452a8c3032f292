// Package record defines the tracked entities and their CSV table contracts.
package record

// Role represents a user's role in the production tracker.
type Role string

const (
	// RoleOperator performs production work on modules and own tasks.
	RoleOperator Role = "operator"
	// RoleInspector reports and resolves quality issues.
	RoleInspector Role = "inspector"
	// RoleManager reads everything and reassigns tasks.
	RoleManager Role = "manager"
)

// ValidRoles returns all valid role values.
func ValidRoles() []Role {
	return []Role{RoleOperator, RoleInspector, RoleManager}
}

// IsValidRole returns true if the role is a valid role value.
func IsValidRole(r Role) bool {
	switch r {
	case RoleOperator, RoleInspector, RoleManager:
		return true
	default:
		return false
	}
}

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
)

// ValidProjectStatuses returns all valid project status values.
func ValidProjectStatuses() []ProjectStatus {
	return []ProjectStatus{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted}
}

// IsValidProjectStatus returns true if the status is a valid project status.
func IsValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	default:
		return false
	}
}

// ModuleStatus represents the production state of a module.
type ModuleStatus string

const (
	ModuleNotStarted ModuleStatus = "not_started"
	ModuleInProgress ModuleStatus = "in_progress"
	ModuleComplete   ModuleStatus = "complete"
	ModuleBlocked    ModuleStatus = "blocked"
)

// ValidModuleStatuses returns all valid module status values.
func ValidModuleStatuses() []ModuleStatus {
	return []ModuleStatus{ModuleNotStarted, ModuleInProgress, ModuleComplete, ModuleBlocked}
}

// IsValidModuleStatus returns true if the status is a valid module status.
func IsValidModuleStatus(s ModuleStatus) bool {
	switch s {
	case ModuleNotStarted, ModuleInProgress, ModuleComplete, ModuleBlocked:
		return true
	default:
		return false
	}
}

// Severity represents how serious a quality issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverities returns all valid severity values.
func ValidSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// IsValidSeverity returns true if the severity is a valid severity value.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// SeverityOrder returns a numeric value for sorting (lower = more severe).
func SeverityOrder(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 2
	}
}

// IssueStatus represents the lifecycle state of a quality issue.
type IssueStatus string

const (
	IssueOpen     IssueStatus = "open"
	IssueInReview IssueStatus = "in_review"
	IssueResolved IssueStatus = "resolved"
)

// ValidIssueStatuses returns all valid issue status values.
func ValidIssueStatuses() []IssueStatus {
	return []IssueStatus{IssueOpen, IssueInReview, IssueResolved}
}

// IsValidIssueStatus returns true if the status is a valid issue status.
func IsValidIssueStatus(s IssueStatus) bool {
	switch s {
	case IssueOpen, IssueInReview, IssueResolved:
		return true
	default:
		return false
	}
}

// TaskStatus represents the state of a work item.
//
// TaskOverdue is derived from the due date at read time and is never
// required to appear on disk; it is accepted on ingestion so a caller
// that chose to persist it round-trips cleanly.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskOverdue    TaskStatus = "overdue"
)

// ValidTaskStatuses returns all valid task status values.
func ValidTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskPending, TaskInProgress, TaskDone, TaskOverdue}
}

// IsValidTaskStatus returns true if the status is a valid task status.
func IsValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskDone, TaskOverdue:
		return true
	default:
		return false
	}
}
