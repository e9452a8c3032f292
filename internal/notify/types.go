// Package notify implements the notification engine: durable per-user
// feed entries backed by SQLite, a transient in-memory publisher for
// live dashboard streams, and the overdue-task derivation pass.
package notify

import "time"

// Kind classifies a notification. The taxonomy is closed; new kinds
// need schema-compatible handling in the dedup index and the feed UI.
type Kind string

const (
	KindIssueCreated  Kind = "issue_created"
	KindTaskAssigned  Kind = "task_assigned"
	KindTaskOverdue   Kind = "task_overdue"
	KindIssueResolved Kind = "issue_resolved"
)

// EntityKind names the record type a notification refers to.
const (
	EntityIssue  = "issue"
	EntityTask   = "task"
	EntityModule = "module"
)

// Event is the transient form of a notification pushed to live
// subscribers. Durable state lives in the database; events are
// best-effort and carry no delivery guarantee.
type Event struct {
	UserID     string    `json:"user_id"`
	Kind       Kind      `json:"kind"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
