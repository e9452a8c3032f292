package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volumod/tracker/internal/trackerr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return d
}

func feedEntry(userID, kind, entityID string) *Notification {
	return &Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		EntityKind: "issue",
		EntityID:   entityID,
		Title:      "New Quality Issue",
		Message:    "critical issue on Module A101",
		CreatedAt:  time.Now(),
	}
}

func TestInsertNotification_DuplicateIgnoredWhileLive(t *testing.T) {
	d := testDB(t)

	inserted, err := d.InsertNotification(feedEntry("U003", "issue_created", "I001"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted")
	}

	inserted, err = d.InsertNotification(feedEntry("U003", "issue_created", "I001"))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate of a live entry should be ignored")
	}

	list, err := d.ListForUser("U003", false, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d entries, want 1", len(list))
	}
}

func TestInsertNotification_NewEntryAfterDismissal(t *testing.T) {
	d := testDB(t)

	first := feedEntry("U003", "issue_created", "I001")
	if _, err := d.InsertNotification(first); err != nil {
		t.Fatal(err)
	}
	if err := d.Dismiss(first.ID); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	inserted, err := d.InsertNotification(feedEntry("U003", "issue_created", "I001"))
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Fatal("re-emitting after dismissal should insert a fresh entry")
	}

	if ok, err := d.HasAny("U003", "issue_created", "I001"); err != nil || !ok {
		t.Fatalf("HasAny = %v, %v", ok, err)
	}
}

func TestListForUser_MostRecentFirst(t *testing.T) {
	d := testDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, entity := range []string{"T001", "T002", "T003"} {
		n := feedEntry("U001", "task_assigned", entity)
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := d.InsertNotification(n); err != nil {
			t.Fatal(err)
		}
	}

	list, err := d.ListForUser("U001", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d entries", len(list))
	}
	if list[0].EntityID != "T003" || list[2].EntityID != "T001" {
		t.Errorf("wrong order: %s, %s, %s", list[0].EntityID, list[1].EntityID, list[2].EntityID)
	}
}

func TestDismissUnknownIDIsNotFound(t *testing.T) {
	d := testDB(t)
	if err := d.Dismiss(uuid.NewString()); !trackerr.IsNotFound(err) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestDismissAllAndUnreadCount(t *testing.T) {
	d := testDB(t)

	for _, entity := range []string{"I001", "I002"} {
		if _, err := d.InsertNotification(feedEntry("U003", "issue_created", entity)); err != nil {
			t.Fatal(err)
		}
	}

	count, err := d.UnreadCount("U003")
	if err != nil || count != 2 {
		t.Fatalf("UnreadCount = %d, %v", count, err)
	}

	if err := d.DismissAll("U003"); err != nil {
		t.Fatal(err)
	}
	count, err = d.UnreadCount("U003")
	if err != nil || count != 0 {
		t.Fatalf("UnreadCount after DismissAll = %d, %v", count, err)
	}

	// Dismissed entries remain queryable.
	list, err := d.ListForUser("U003", true, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListForUser(includeDismissed) = %d, %v", len(list), err)
	}
	for _, n := range list {
		if !n.Dismissed() {
			t.Errorf("entry %s should be dismissed", n.ID)
		}
	}
}

func TestAuditRoundTrip(t *testing.T) {
	d := testDB(t)

	e := &AuditEntry{
		UserID:     "U002",
		Action:     "resolve",
		EntityKind: "issue",
		EntityID:   "I001",
		Details:    "status open -> resolved",
	}
	if err := d.InsertAudit(e); err != nil {
		t.Fatalf("insert audit: %v", err)
	}
	if e.LogID == 0 {
		t.Error("LogID should be assigned")
	}

	entries, err := d.AuditForEntity("issue", "I001")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != "resolve" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	recent, err := d.RecentAudit(10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("RecentAudit = %d, %v", len(recent), err)
	}
}
