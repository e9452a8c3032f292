package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/volumod/tracker/internal/auth"
)

// sessionHandler is an http.HandlerFunc with the caller's session
// already resolved.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess auth.Session)

// withSession resolves the bearer token to a session or rejects the
// request with 401. Tokens arrive as "Authorization: Bearer <token>";
// WebSocket clients may pass ?token= instead since browsers cannot set
// headers on upgrade requests.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			JSONError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		s.sessionsMu.RLock()
		sess, ok := s.sessions[token]
		s.sessionsMu.RUnlock()
		if !ok {
			JSONError(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}
		h(w, r, sess)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return r.URL.Query().Get("token")
}

// createSession registers a session and returns its opaque token.
func (s *Server) createSession(sess auth.Session) string {
	token := uuid.NewString()
	s.sessionsMu.Lock()
	s.sessions[token] = sess
	s.sessionsMu.Unlock()
	return token
}

// dropSession removes the session for the given token, if any.
func (s *Server) dropSession(token string) {
	s.sessionsMu.Lock()
	delete(s.sessions, token)
	s.sessionsMu.Unlock()
}

// sessionForToken resolves a token outside the middleware path. The
// WebSocket handler uses this during upgrade.
func (s *Server) sessionForToken(token string) (auth.Session, bool) {
	s.sessionsMu.RLock()
	sess, ok := s.sessions[token]
	s.sessionsMu.RUnlock()
	return sess, ok
}
