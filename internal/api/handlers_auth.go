package api

import (
	"encoding/json"
	"net/http"

	"github.com/volumod/tracker/internal/audit"
	"github.com/volumod/tracker/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string       `json:"token"`
	Session auth.Session `json:"session"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := auth.Authenticate(s.store, req.Username, req.Password)
	if err != nil {
		s.logger.Warn("login rejected", "username", req.Username)
		HandleError(w, err)
		return
	}

	token := s.createSession(sess)
	s.trail.Record(sess.UserID, audit.ActionLogin, "user", sess.UserID, "")
	s.logger.Info("login", "username", sess.Username, "role", sess.Role)
	JSONResponse(w, loginResponse{Token: token, Session: sess})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	s.dropSession(bearerToken(r))
	NoContent(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	JSONResponse(w, sess)
}
