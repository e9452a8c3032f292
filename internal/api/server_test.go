package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/volumod/tracker/internal/db"
	"github.com/volumod/tracker/internal/notify"
	"github.com/volumod/tracker/internal/seed"
	"github.com/volumod/tracker/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, seed.Run(s, nil))

	d, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	pub := notify.NewMemoryPublisher()
	t.Cleanup(pub.Close)

	engine := notify.NewEngine(s, d, pub, nil)
	return New(Config{}, s, d, engine, pub)
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := gjson.Get(w.Body.String(), "token").String()
	require.NotEmpty(t, token)
	return token
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": "john_doe", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "operator", gjson.Get(body, "session.role").String())
	assert.Equal(t, "john_doe", gjson.Get(body, "session.username").String())

	w = doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": "john_doe", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_FAILED", gjson.Get(w.Body.String(), "code").String())
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/projects", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv, "mike_jones", "secure789")

	w := doJSON(t, srv, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/projects", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectCreateIsManagerOnly(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "mike_jones", "secure789")
	operator := login(t, srv, "john_doe", "password123")

	body := map[string]any{
		"name":        "Warehouse C",
		"start_date":  time.Now().Format(time.RFC3339),
		"target_date": time.Now().AddDate(0, 6, 0).Format(time.RFC3339),
	}
	w := doJSON(t, srv, http.MethodPost, "/api/projects", operator, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/projects", manager, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := w.Body.String()
	assert.Equal(t, "planning", gjson.Get(created, "status").String())
	assert.Equal(t, int64(1), gjson.Get(created, "rev").Int())
	assert.NotEmpty(t, gjson.Get(created, "id").String())
}

func TestModuleUpdateConflict(t *testing.T) {
	srv := newTestServer(t)
	operator := login(t, srv, "john_doe", "password123")

	w := doJSON(t, srv, http.MethodGet, "/api/modules/M001", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	module := w.Body.String()
	rev := gjson.Get(module, "rev").Int()

	update := map[string]any{
		"project_id":  gjson.Get(module, "project_id").String(),
		"name":        gjson.Get(module, "name").String(),
		"assigned_to": gjson.Get(module, "assigned_to").String(),
		"status":      "in_progress",
		"progress":    0.6,
		"rev":         rev,
	}
	w = doJSON(t, srv, http.MethodPut, "/api/modules/M001", operator, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, rev+1, gjson.Get(w.Body.String(), "rev").Int())

	// Replaying the same update with the stale rev conflicts.
	w = doJSON(t, srv, http.MethodPut, "/api/modules/M001", operator, update)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "UPDATE_CONFLICT", gjson.Get(w.Body.String(), "code").String())
}

func TestIssueLifecycle(t *testing.T) {
	srv := newTestServer(t)
	inspector := login(t, srv, "jane_smith", "pass456")
	operator := login(t, srv, "john_doe", "password123")

	// Operators cannot raise issues.
	issueBody := map[string]any{"module_id": "M001", "severity": "high", "category": "electrical"}
	w := doJSON(t, srv, http.MethodPost, "/api/issues", operator, issueBody)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/issues", inspector, issueBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := w.Body.String()
	issueID := gjson.Get(created, "id").String()
	assert.Equal(t, "open", gjson.Get(created, "status").String())
	assert.Equal(t, "U002", gjson.Get(created, "created_by").String(), "reporter is taken from the session")

	// The module's operator sees the issue in their feed.
	w = doJSON(t, srv, http.MethodGet, "/api/notifications", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := gjson.Get(w.Body.String(), fmt.Sprintf(`#(entity_id=="%s")#`, issueID)).Array()
	require.NotEmpty(t, feed, "operator should be notified of the new issue")

	// Resolve with the current rev.
	rev := gjson.Get(created, "rev").Int()
	w = doJSON(t, srv, http.MethodPost, "/api/issues/"+issueID+"/resolve", inspector, map[string]any{"rev": rev})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := w.Body.String()
	assert.Equal(t, "resolved", gjson.Get(resolved, "status").String())
	assert.True(t, gjson.Get(resolved, "resolved_at").Exists())

	// A second resolve with the old rev loses: already resolved.
	w = doJSON(t, srv, http.MethodPost, "/api/issues/"+issueID+"/resolve", inspector, map[string]any{"rev": rev})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConcurrentResolveLosesOnStaleRev(t *testing.T) {
	srv := newTestServer(t)
	inspector := login(t, srv, "jane_smith", "pass456")
	manager := login(t, srv, "mike_jones", "secure789")

	w := doJSON(t, srv, http.MethodGet, "/api/issues/I001", inspector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rev := gjson.Get(w.Body.String(), "rev").Int()

	w = doJSON(t, srv, http.MethodPost, "/api/issues/I001/resolve", inspector, map[string]any{"rev": rev})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The manager raced on the same snapshot; their resolve must not
	// silently win or double-apply.
	w = doJSON(t, srv, http.MethodPost, "/api/issues/I001/resolve", manager, map[string]any{"rev": rev})
	assert.Equal(t, http.StatusBadRequest, w.Code, "second resolve sees the issue already resolved")
}

func TestTaskCompletionScopedToAssignee(t *testing.T) {
	srv := newTestServer(t)
	operator := login(t, srv, "john_doe", "password123")

	// T003 belongs to the inspector; the operator may not complete it.
	w := doJSON(t, srv, http.MethodGet, "/api/tasks/T003", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rev := gjson.Get(w.Body.String(), "rev").Int()
	w = doJSON(t, srv, http.MethodPost, "/api/tasks/T003/complete", operator, map[string]any{"rev": rev})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// T001 is the operator's own task.
	w = doJSON(t, srv, http.MethodGet, "/api/tasks/T001", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rev = gjson.Get(w.Body.String(), "rev").Int()
	w = doJSON(t, srv, http.MethodPost, "/api/tasks/T001/complete", operator, map[string]any{"rev": rev})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "done", gjson.Get(w.Body.String(), "status").String())
}

func TestTaskListDerivesOverdue(t *testing.T) {
	srv := newTestServer(t)
	operator := login(t, srv, "john_doe", "password123")

	w := doJSON(t, srv, http.MethodGet, "/api/tasks?mine=true", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// T002 was seeded with a past due date and is still pending.
	status := gjson.Get(w.Body.String(), `#(id=="T002").status`).String()
	assert.Equal(t, "overdue", status)
}

func TestTaskReassignNotifiesNewAssignee(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "mike_jones", "secure789")
	inspector := login(t, srv, "jane_smith", "pass456")

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/T001", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rev := gjson.Get(w.Body.String(), "rev").Int()

	w = doJSON(t, srv, http.MethodPost, "/api/tasks/T001/reassign", manager,
		map[string]any{"assigned_to": "U002", "rev": rev})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "U002", gjson.Get(w.Body.String(), "assigned_to").String())

	w = doJSON(t, srv, http.MethodGet, "/api/notifications", inspector, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := gjson.Get(w.Body.String(), `#(entity_id=="T001")#`).Array()
	assert.NotEmpty(t, entry, "new assignee should be notified")
}

func TestNotificationDismissal(t *testing.T) {
	srv := newTestServer(t)
	operator := login(t, srv, "john_doe", "password123")

	// Polling synthesizes the overdue alert for seeded task T002.
	w := doJSON(t, srv, http.MethodGet, "/api/notifications", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := gjson.Get(w.Body.String(), `#(kind=="task_overdue").id`).String()
	require.NotEmpty(t, id)

	w = doJSON(t, srv, http.MethodPost, "/api/notifications/"+id+"/dismiss", operator, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Dismissed for good: polling again does not resurrect it.
	w = doJSON(t, srv, http.MethodGet, "/api/notifications", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, gjson.Get(w.Body.String(), `#(kind=="task_overdue")#`).Array())

	// Reassigning a task to the operator puts a fresh entry in the feed.
	manager := login(t, srv, "mike_jones", "secure789")
	w = doJSON(t, srv, http.MethodPost, "/api/tasks/T001/reassign", manager,
		map[string]any{"assigned_to": "U001", "rev": 1})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/notifications/count", operator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Positive(t, gjson.Get(w.Body.String(), "count").Int())

	w = doJSON(t, srv, http.MethodPost, "/api/notifications/dismiss-all", operator, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, srv, http.MethodGet, "/api/notifications/count", operator, nil)
	assert.Equal(t, int64(0), gjson.Get(w.Body.String(), "count").Int())
}

func TestReports(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "mike_jones", "secure789")

	w := doJSON(t, srv, http.MethodGet, "/api/reports/projects", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summaries := gjson.Parse(w.Body.String()).Array()
	require.Len(t, summaries, 2)

	// P001 has modules at 0.4, 0, and 1.
	w = doJSON(t, srv, http.MethodGet, "/api/reports/projects/P001/completion", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, (0.4+0+1)/3, gjson.Get(w.Body.String(), "completion").Float(), 1e-9)

	w = doJSON(t, srv, http.MethodGet, "/api/reports/issues?severity=high", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "total").Int())

	w = doJSON(t, srv, http.MethodGet, "/api/reports/overdue", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, gjson.Get(w.Body.String(), `#(id=="T002")#`).Array())
}

func TestAuditIsManagerOnly(t *testing.T) {
	srv := newTestServer(t)
	manager := login(t, srv, "mike_jones", "secure789")
	operator := login(t, srv, "john_doe", "password123")

	w := doJSON(t, srv, http.MethodGet, "/api/audit", operator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/audit", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	// Both logins in this test left entries.
	entries := gjson.Parse(w.Body.String()).Array()
	assert.NotEmpty(t, entries)
	assert.Equal(t, "login", entries[0].Get("action").String())
}

func TestUnknownRecordIs404(t *testing.T) {
	srv := newTestServer(t)
	operator := login(t, srv, "john_doe", "password123")

	w := doJSON(t, srv, http.MethodGet, "/api/projects/P999", operator, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RECORD_NOT_FOUND", gjson.Get(w.Body.String(), "code").String())
}
