package api

import (
	"net/http"
	"strconv"

	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/trackerr"
)

func (s *Server) handleRecentAudit(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapViewAudit) {
		HandleError(w, trackerr.Forbidden("view the audit trail"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			JSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.trail.Recent(limit)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, entries)
}

func (s *Server) handleEntityAudit(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapViewAudit) {
		HandleError(w, trackerr.Forbidden("view the audit trail"))
		return
	}

	entries, err := s.trail.ForEntity(r.PathValue("kind"), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, entries)
}
