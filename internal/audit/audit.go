// Package audit records who changed what. Entries are append-only and
// best-effort: a failed audit write is logged but never fails the
// mutation it describes.
package audit

import (
	"log/slog"

	"github.com/volumod/tracker/internal/db"
)

// Action names for audit entries. Kept as plain strings so ad-hoc CLI
// actions can log without extending a closed set.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionResolve  = "resolve"
	ActionComplete = "complete"
	ActionReassign = "reassign"
	ActionLogin    = "login"
	ActionSeed     = "seed"
)

// Trail writes audit entries to the database.
type Trail struct {
	db     *db.DB
	logger *slog.Logger
}

// NewTrail creates an audit trail over the given database.
func NewTrail(d *db.DB, logger *slog.Logger) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{db: d, logger: logger}
}

// Record appends one entry. Failures are swallowed after logging so the
// trail never blocks the operation being audited.
func (t *Trail) Record(userID, action, entityKind, entityID, details string) {
	entry := &db.AuditEntry{
		UserID:     userID,
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
		Details:    details,
	}
	if err := t.db.InsertAudit(entry); err != nil {
		t.logger.Error("audit write failed",
			"action", action, "entity", entityKind+"/"+entityID, "error", err)
	}
}

// ForEntity returns the history of one entity, oldest first.
func (t *Trail) ForEntity(entityKind, entityID string) ([]*db.AuditEntry, error) {
	return t.db.AuditForEntity(entityKind, entityID)
}

// Recent returns the latest entries across all entities, newest first.
func (t *Trail) Recent(limit int) ([]*db.AuditEntry, error) {
	return t.db.RecentAudit(limit)
}
