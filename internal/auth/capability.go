package auth

import (
	"github.com/volumod/tracker/internal/record"
)

// Capability names an action a session may or may not perform.
type Capability string

const (
	CapViewProjects     Capability = "view_projects"
	CapCreateProjects   Capability = "create_projects"
	CapUpdateProduction Capability = "update_production" // mutate module status/progress
	CapCreateIssues     Capability = "create_issues"
	CapEditIssues       Capability = "edit_issues"
	CapResolveIssues    Capability = "resolve_issues"
	CapCreateTasks      Capability = "create_tasks"
	CapCompleteTasks    Capability = "complete_tasks"
	CapReassignTasks    Capability = "reassign_tasks"
	CapViewReports      Capability = "view_reports"
	CapManageUsers      Capability = "manage_users"
	CapViewAudit        Capability = "view_audit"
)

// rolePermissions maps each role to its allowed capability set.
//
// Operators work the floor: they update production state and complete
// their own tasks. Inspectors own the quality loop: they create and
// resolve issues. Managers read everything, reassign work, and manage
// accounts.
var rolePermissions = map[record.Role]map[Capability]bool{
	record.RoleOperator: {
		CapViewProjects:     true,
		CapUpdateProduction: true,
		CapCompleteTasks:    true,
	},
	record.RoleInspector: {
		CapViewProjects:  true,
		CapCreateIssues:  true,
		CapEditIssues:    true,
		CapResolveIssues: true,
		CapCreateTasks:   true,
		CapCompleteTasks: true,
		CapViewReports:   true,
	},
	record.RoleManager: {
		CapViewProjects:     true,
		CapCreateProjects:   true,
		CapUpdateProduction: true,
		CapCreateIssues:     true,
		CapEditIssues:       true,
		CapResolveIssues:    true,
		CapCreateTasks:      true,
		CapCompleteTasks:    true,
		CapReassignTasks:    true,
		CapViewReports:      true,
		CapManageUsers:      true,
		CapViewAudit:        true,
	},
}

// Authorize reports whether the session's role grants the capability.
func Authorize(sess Session, cap Capability) bool {
	perms, ok := rolePermissions[sess.Role]
	if !ok {
		return false
	}
	return perms[cap]
}

// CanMutateModule reports whether the session may change the given
// module's production state. Operators are scoped to modules assigned
// to themselves.
func CanMutateModule(sess Session, module *record.Module) bool {
	if !Authorize(sess, CapUpdateProduction) {
		return false
	}
	if sess.Role == record.RoleOperator {
		return module.AssignedTo == sess.UserID
	}
	return true
}

// CanMutateTask reports whether the session may change the given task.
// Operators are scoped to tasks assigned to themselves; inspectors and
// managers may touch any task their capabilities allow.
func CanMutateTask(sess Session, task *record.Task) bool {
	if !Authorize(sess, CapCompleteTasks) {
		return false
	}
	if sess.Role == record.RoleOperator {
		return task.AssignedTo == sess.UserID
	}
	return true
}
