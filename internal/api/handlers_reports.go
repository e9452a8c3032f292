package api

import (
	"net/http"
	"time"

	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/report"
	"github.com/volumod/tracker/internal/trackerr"
)

func (s *Server) handleProjectSummaries(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	summaries, err := s.reporter.Summaries()
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, summaries)
}

func (s *Server) handleProjectCompletion(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	id := r.PathValue("id")
	completion, err := s.reporter.ProjectCompletion(id)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, map[string]any{"project_id": id, "completion": completion})
}

func (s *Server) handleIssueStats(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	q := r.URL.Query()
	filter := report.IssueFilter{
		ModuleID:  q.Get("module_id"),
		ProjectID: q.Get("project_id"),
		Status:    record.IssueStatus(q.Get("status")),
		Severity:  record.Severity(q.Get("severity")),
	}
	stats, err := s.reporter.IssueStats(filter)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, stats)
}

func (s *Server) handleThroughput(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		userID = sess.UserID
	}
	// Looking at someone else's throughput is a reporting view.
	if userID != sess.UserID && !auth.Authorize(sess, auth.CapViewReports) {
		HandleError(w, trackerr.Forbidden("view another user's throughput"))
		return
	}

	window := time.Duration(0)
	if raw := q.Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			JSONError(w, "window must be a duration like 720h", http.StatusBadRequest)
			return
		}
		window = d
	}

	throughput, err := s.reporter.TaskThroughput(userID, window)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, throughput)
}

func (s *Server) handleOverdueTasks(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	overdue, err := s.reporter.OverdueTasks()
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, overdue)
}
