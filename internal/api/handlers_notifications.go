package api

import (
	"net/http"
	"strconv"

	"github.com/volumod/tracker/internal/auth"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			JSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	feed, err := s.engine.Poll(sess.UserID, limit)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, feed)
}

func (s *Server) handleNotificationCount(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	count, err := s.engine.UnreadCount(sess.UserID)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, map[string]int{"count": count})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if err := s.engine.Dismiss(sess.UserID, r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

func (s *Server) handleDismissAll(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if err := s.engine.DismissAll(sess.UserID); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}
