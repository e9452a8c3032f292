package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/volumod/tracker/internal/trackerr"
)

// Notification is one feed entry for one recipient.
type Notification struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Kind        string     `json:"kind"`
	EntityKind  string     `json:"entity_kind"`
	EntityID    string     `json:"entity_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
}

// Dismissed reports whether the notification has been dismissed.
func (n *Notification) Dismissed() bool { return n.DismissedAt != nil }

// InsertNotification inserts a feed entry. It returns false when an
// equivalent live entry already exists for the recipient: the unique
// index on (user_id, kind, entity_id) WHERE dismissed_at IS NULL plus
// INSERT OR IGNORE makes emission idempotent until dismissal.
func (d *DB) InsertNotification(n *Notification) (bool, error) {
	createdAt := n.CreatedAt.UTC().Format(timeFormat)

	res, err := d.db.Exec(`
		INSERT OR IGNORE INTO notifications (id, user_id, kind, entity_kind, entity_id, title, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Kind, n.EntityKind, n.EntityID, n.Title, n.Message, createdAt)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListForUser returns the user's notifications, most recent first.
// Dismissed entries are excluded unless includeDismissed is set.
func (d *DB) ListForUser(userID string, includeDismissed bool, limit int) ([]*Notification, error) {
	query := `
		SELECT id, user_id, kind, entity_kind, entity_id, title, message, created_at, dismissed_at
		FROM notifications
		WHERE user_id = ?`
	if !includeDismissed {
		query += ` AND dismissed_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetNotification fetches a single entry by id, live or dismissed.
func (d *DB) GetNotification(id string) (*Notification, error) {
	rows, err := d.db.Query(`
		SELECT id, user_id, kind, entity_kind, entity_id, title, message, created_at, dismissed_at
		FROM notifications WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, trackerr.NotFound("notifications", id)
	}
	return scanNotification(rows)
}

// Dismiss marks a notification as dismissed. Dismissing an already
// dismissed entry is a no-op; an unknown id is NotFound.
func (d *DB) Dismiss(id string) error {
	now := time.Now().UTC().Format(timeFormat)
	res, err := d.db.Exec(`
		UPDATE notifications SET dismissed_at = ?
		WHERE id = ? AND dismissed_at IS NULL
	`, now, id)
	if err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := d.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check notification: %w", err)
		}
		if exists == 0 {
			return trackerr.NotFound("notifications", id)
		}
	}
	return nil
}

// DismissAll dismisses every live notification for a user.
func (d *DB) DismissAll(userID string) error {
	now := time.Now().UTC().Format(timeFormat)
	_, err := d.db.Exec(`
		UPDATE notifications SET dismissed_at = ?
		WHERE user_id = ? AND dismissed_at IS NULL
	`, now, userID)
	if err != nil {
		return fmt.Errorf("dismiss all: %w", err)
	}
	return nil
}

// UnreadCount returns the number of live notifications for a user.
func (d *DB) UnreadCount(userID string) (int, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND dismissed_at IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}

// HasAny reports whether a notification for (user, kind, entity) exists
// at all, live or dismissed. The overdue re-derivation uses this so a
// dismissed overdue alert is not synthesized again.
func (d *DB) HasAny(userID, kind, entityID string) (bool, error) {
	var count int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM notifications
		WHERE user_id = ? AND kind = ? AND entity_id = ?
	`, userID, kind, entityID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check notification: %w", err)
	}
	return count > 0, nil
}

func scanNotification(rows *sql.Rows) (*Notification, error) {
	var n Notification
	var createdAt string
	var dismissedAt sql.NullString
	if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.EntityKind, &n.EntityID,
		&n.Title, &n.Message, &createdAt, &dismissedAt); err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	ts, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	n.CreatedAt = ts

	if dismissedAt.Valid {
		ts, err := time.Parse(timeFormat, dismissedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse dismissed_at %q: %w", dismissedAt.String, err)
		}
		n.DismissedAt = &ts
	}
	return &n, nil
}
