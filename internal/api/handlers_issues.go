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

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	q := r.URL.Query()
	moduleID := q.Get("module_id")
	status := record.IssueStatus(q.Get("status"))
	severity := record.Severity(q.Get("severity"))

	issues, err := store.AllWhere(s.store, record.Issues, func(i *record.Issue) bool {
		if moduleID != "" && i.ModuleID != moduleID {
			return false
		}
		if status != "" && i.Status != status {
			return false
		}
		if severity != "" && i.Severity != severity {
			return false
		}
		return true
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, issues)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	issue, err := store.Get(s.store, record.Issues, r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, issue)
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapCreateIssues) {
		HandleError(w, trackerr.Forbidden("create issues"))
		return
	}

	var issue record.Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// The reporter and creation time are server-assigned.
	issue.CreatedBy = sess.UserID
	issue.CreatedAt = time.Now()
	issue.ResolvedAt = nil
	if issue.Status == "" {
		issue.Status = record.IssueOpen
	}

	if _, err := store.Get(s.store, record.Modules, issue.ModuleID); err != nil {
		HandleError(w, err)
		return
	}

	if err := store.Save(s.store, record.Issues, &issue); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionCreate, "issue", issue.ID, issue.Category)

	if err := s.engine.IssueCreated(&issue); err != nil {
		s.logger.Error("issue notification failed", "issue", issue.ID, "error", err)
	}
	JSONResponseStatus(w, issue, http.StatusCreated)
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapEditIssues) {
		HandleError(w, trackerr.Forbidden("edit issues"))
		return
	}

	var issue record.Issue
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	prev, err := store.Get(s.store, record.Issues, id)
	if err != nil {
		HandleError(w, err)
		return
	}
	// Reporter and creation time are immutable; resolution goes through
	// the resolve endpoint.
	issue.CreatedBy = prev.CreatedBy
	issue.CreatedAt = prev.CreatedAt

	if err := store.Update(s.store, record.Issues, id, &issue); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionUpdate, "issue", id, string(issue.Status))
	JSONResponse(w, issue)
}

type resolveRequest struct {
	Rev int `json:"rev"`
}

func (s *Server) handleResolveIssue(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapResolveIssues) {
		HandleError(w, trackerr.Forbidden("resolve issues"))
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	issue, err := store.Get(s.store, record.Issues, id)
	if err != nil {
		HandleError(w, err)
		return
	}
	if issue.Status == record.IssueResolved {
		HandleError(w, trackerr.Validation("issue is already resolved", "resolving is a one-way transition"))
		return
	}

	// The caller proves it saw the current state; a stale rev means
	// someone else got there first and the request conflicts.
	now := time.Now()
	issue.Rev = req.Rev
	issue.Status = record.IssueResolved
	issue.ResolvedAt = &now

	if err := store.Update(s.store, record.Issues, id, issue); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionResolve, "issue", id, "")

	if err := s.engine.IssueResolved(issue); err != nil {
		s.logger.Error("resolve notification failed", "issue", id, "error", err)
	}
	JSONResponse(w, issue)
}
