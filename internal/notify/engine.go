package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/volumod/tracker/internal/db"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
	"github.com/volumod/tracker/internal/trackerr"
)

// Engine writes durable feed entries and mirrors each fresh entry to
// the live publisher. Emission is idempotent: while an equivalent entry
// is live for a recipient, re-emitting it is a no-op.
type Engine struct {
	store  *store.Store
	db     *db.DB
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source. Tests use this to pin
// overdue derivation to a fixed instant.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a notification engine over the record store and the
// feed database. A nil publisher defaults to NopPublisher.
func NewEngine(s *store.Store, d *db.DB, pub Publisher, logger *slog.Logger, opts ...EngineOption) *Engine {
	if pub == nil {
		pub = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:  s,
		db:     d,
		pub:    pub,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit writes one feed entry per recipient and publishes a live event
// for each entry actually inserted. Duplicate recipients are collapsed.
func (e *Engine) Emit(userIDs []string, kind Kind, entityKind, entityID, title, message string) error {
	seen := make(map[string]bool, len(userIDs))
	now := e.now()

	for _, userID := range userIDs {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		n := &db.Notification{
			ID:         uuid.NewString(),
			UserID:     userID,
			Kind:       string(kind),
			EntityKind: entityKind,
			EntityID:   entityID,
			Title:      title,
			Message:    message,
			CreatedAt:  now,
		}
		inserted, err := e.db.InsertNotification(n)
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}
		e.pub.Publish(Event{
			UserID:     userID,
			Kind:       kind,
			EntityKind: entityKind,
			EntityID:   entityID,
			Title:      title,
			Message:    message,
			Timestamp:  now,
		})
	}
	return nil
}

// IssueCreated notifies every manager plus the assigned operator of the
// module the issue was raised against.
func (e *Engine) IssueCreated(issue *record.Issue) error {
	module, err := store.Get(e.store, record.Modules, issue.ModuleID)
	if err != nil {
		return err
	}
	audience, err := e.managerIDs()
	if err != nil {
		return err
	}
	audience = append(audience, module.AssignedTo)

	title := fmt.Sprintf("New %s issue on %s", issue.Severity, module.Name)
	message := fmt.Sprintf("Issue %s (%s) was reported on %s.", issue.ID, issue.Category, module.Name)
	return e.Emit(audience, KindIssueCreated, EntityIssue, issue.ID, title, message)
}

// IssueResolved notifies the user who reported the issue.
func (e *Engine) IssueResolved(issue *record.Issue) error {
	title := fmt.Sprintf("Issue %s resolved", issue.ID)
	message := fmt.Sprintf("The %s issue you reported (%s) has been resolved.", issue.Severity, issue.Category)
	return e.Emit([]string{issue.CreatedBy}, KindIssueResolved, EntityIssue, issue.ID, title, message)
}

// TaskAssigned notifies the assignee of a new or reassigned task.
func (e *Engine) TaskAssigned(task *record.Task) error {
	title := fmt.Sprintf("Task %s assigned to you", task.ID)
	message := fmt.Sprintf("%s (due %s)", task.Description, task.DueDate.Format("2006-01-02"))
	return e.Emit([]string{task.AssignedTo}, KindTaskAssigned, EntityTask, task.ID, title, message)
}

// ModuleStatusChanged publishes a transient facility-wide event only.
// Module transitions are routine floor activity, so they reach live
// dashboards but never accumulate in anyone's durable feed.
func (e *Engine) ModuleStatusChanged(module *record.Module) {
	e.pub.Publish(Event{
		UserID:     GlobalUserID,
		Kind:       Kind("module_status"),
		EntityKind: EntityModule,
		EntityID:   module.ID,
		Title:      fmt.Sprintf("%s is now %s", module.Name, module.Status),
		Timestamp:  e.now(),
	})
}

// DeriveOverdue scans the task table and emits a task_overdue entry to
// the assignee and every manager for each task whose due date has
// passed. An alert for a given task is emitted at most once per
// recipient, ever: once dismissed it stays gone even though the task
// remains overdue. It returns the number of entries emitted.
func (e *Engine) DeriveOverdue() (int, error) {
	tasks, err := store.Load(e.store, record.Tasks)
	if err != nil {
		return 0, err
	}
	managers, err := e.managerIDs()
	if err != nil {
		return 0, err
	}

	now := e.now()
	emitted := 0
	for _, task := range tasks {
		if !task.IsOverdue(now) {
			continue
		}

		title := fmt.Sprintf("Task %s is overdue", task.ID)
		message := fmt.Sprintf("%s was due %s.", task.Description, task.DueDate.Format("2006-01-02"))
		for _, userID := range append([]string{task.AssignedTo}, managers...) {
			prior, err := e.db.HasAny(userID, string(KindTaskOverdue), task.ID)
			if err != nil {
				return emitted, err
			}
			if prior {
				continue
			}
			if err := e.Emit([]string{userID}, KindTaskOverdue, EntityTask, task.ID, title, message); err != nil {
				return emitted, err
			}
			emitted++
		}
	}
	return emitted, nil
}

// Poll refreshes overdue alerts and returns the user's live feed, most
// recent first. A limit of 0 returns everything.
func (e *Engine) Poll(userID string, limit int) ([]*db.Notification, error) {
	if _, err := e.DeriveOverdue(); err != nil {
		return nil, err
	}
	return e.db.ListForUser(userID, false, limit)
}

// Dismiss removes a notification from the user's live feed. Users may
// only dismiss their own entries.
func (e *Engine) Dismiss(userID, notificationID string) error {
	n, err := e.db.GetNotification(notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return trackerr.Forbidden("dismiss another user's notification")
	}
	return e.db.Dismiss(notificationID)
}

// DismissAll clears the user's live feed.
func (e *Engine) DismissAll(userID string) error {
	return e.db.DismissAll(userID)
}

// UnreadCount returns the size of the user's live feed without
// refreshing overdue alerts.
func (e *Engine) UnreadCount(userID string) (int, error) {
	return e.db.UnreadCount(userID)
}

func (e *Engine) managerIDs() ([]string, error) {
	managers, err := store.AllWhere(e.store, record.Users, func(u *record.User) bool {
		return u.Role == record.RoleManager
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(managers))
	for i, m := range managers {
		ids[i] = m.ID
	}
	return ids, nil
}
