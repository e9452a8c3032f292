package db

import (
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry is one row of the mutation audit trail.
type AuditEntry struct {
	LogID      int64     `json:"log_id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// InsertAudit appends an entry to the audit log.
func (d *DB) InsertAudit(e *AuditEntry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var details any
	if e.Details != "" {
		details = e.Details
	}

	res, err := d.db.Exec(`
		INSERT INTO audit_log (user_id, action, entity_kind, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.UserID, e.Action, e.EntityKind, e.EntityID, details, createdAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get audit id: %w", err)
	}
	e.LogID = id
	return nil
}

// AuditForEntity returns the audit entries for one entity, oldest first.
func (d *DB) AuditForEntity(entityKind, entityID string) ([]*AuditEntry, error) {
	return d.queryAudit(`
		SELECT log_id, user_id, action, entity_kind, entity_id, details, created_at
		FROM audit_log
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY log_id ASC
	`, entityKind, entityID)
}

// RecentAudit returns the most recent audit entries, newest first.
func (d *DB) RecentAudit(limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return d.queryAudit(`
		SELECT log_id, user_id, action, entity_kind, entity_id, details, created_at
		FROM audit_log
		ORDER BY log_id DESC
		LIMIT ?
	`, limit)
}

func (d *DB) queryAudit(query string, args ...any) ([]*AuditEntry, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var details sql.NullString
		var createdAt string
		if err := rows.Scan(&e.LogID, &e.UserID, &e.Action, &e.EntityKind, &e.EntityID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Details = details.String
		ts, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		e.CreatedAt = ts
		out = append(out, &e)
	}
	return out, rows.Err()
}
