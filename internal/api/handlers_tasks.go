package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/volumod/tracker/internal/audit"
	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
	"github.com/volumod/tracker/internal/trackerr"
)

// taskView is a task with the overdue status derived at read time.
func taskView(t *record.Task, now time.Time) *record.Task {
	out := *t
	out.Status = t.EffectiveStatus(now)
	return &out
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	q := r.URL.Query()
	assignee := q.Get("assigned_to")
	if q.Get("mine") == "true" {
		assignee = sess.UserID
	}

	tasks, err := store.AllWhere(s.store, record.Tasks, func(t *record.Task) bool {
		return assignee == "" || t.AssignedTo == assignee
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	now := time.Now()
	views := make([]*record.Task, len(tasks))
	for i, t := range tasks {
		views[i] = taskView(t, now)
	}
	JSONResponse(w, views)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	task, err := store.Get(s.store, record.Tasks, r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, taskView(task, time.Now()))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapCreateTasks) {
		HandleError(w, trackerr.Forbidden("create tasks"))
		return
	}

	var task record.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if task.Status == "" {
		task.Status = record.TaskPending
	}

	if _, err := store.Get(s.store, record.Users, task.AssignedTo); err != nil {
		HandleError(w, err)
		return
	}
	if task.ModuleID != "" {
		if _, err := store.Get(s.store, record.Modules, task.ModuleID); err != nil {
			HandleError(w, err)
			return
		}
	}

	if err := store.Save(s.store, record.Tasks, &task); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionCreate, "task", task.ID, task.Description)

	if err := s.engine.TaskAssigned(&task); err != nil {
		s.logger.Error("assignment notification failed", "task", task.ID, "error", err)
	}
	JSONResponseStatus(w, task, http.StatusCreated)
}

type completeRequest struct {
	Rev int `json:"rev"`
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	task, err := store.Get(s.store, record.Tasks, id)
	if err != nil {
		HandleError(w, err)
		return
	}
	if !auth.CanMutateTask(sess, task) {
		HandleError(w, trackerr.Forbidden("complete this task"))
		return
	}

	task.Rev = req.Rev
	task.Status = record.TaskDone
	if err := store.Update(s.store, record.Tasks, id, task); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionComplete, "task", id, "")
	JSONResponse(w, task)
}

type reassignRequest struct {
	AssignedTo string `json:"assigned_to"`
	Rev        int    `json:"rev"`
}

func (s *Server) handleReassignTask(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapReassignTasks) {
		HandleError(w, trackerr.Forbidden("reassign tasks"))
		return
	}

	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	task, err := store.Get(s.store, record.Tasks, id)
	if err != nil {
		HandleError(w, err)
		return
	}
	if _, err := store.Get(s.store, record.Users, req.AssignedTo); err != nil {
		HandleError(w, err)
		return
	}

	prev := task.AssignedTo
	task.Rev = req.Rev
	task.AssignedTo = req.AssignedTo
	if err := store.Update(s.store, record.Tasks, id, task); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionReassign, "task", id, prev+" -> "+req.AssignedTo)

	if err := s.engine.TaskAssigned(task); err != nil {
		s.logger.Error("assignment notification failed", "task", id, "error", err)
	}
	JSONResponse(w, task)
}
