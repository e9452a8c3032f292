// Package auth implements the session/auth gate.
//
// A Session is a pure value carrying identity and role; there is no
// server-side session resource to expire or revoke. Credentials are
// compared verbatim against the user table: the demo accounts are test
// fixtures, not an authentication model, and this is called out in the
// project docs rather than silently hardened.
package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
	"github.com/volumod/tracker/internal/trackerr"
)

// Session is the identity and role context established after a
// successful login.
type Session struct {
	ID       string      `json:"id"`
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     record.Role `json:"role"`
	IssuedAt time.Time   `json:"issued_at"`
}

// Authenticate validates credentials against the user table and returns
// a Session. The username match is case-sensitive and exact; the
// password is compared verbatim. Unknown user and wrong password are
// indistinguishable to the caller.
func Authenticate(s *store.Store, username, password string) (Session, error) {
	users, err := store.Load(s, record.Users)
	if err != nil {
		return Session{}, err
	}

	for _, u := range users {
		if u.Username == username && u.Password == password {
			return Session{
				ID:       uuid.NewString(),
				UserID:   u.ID,
				Username: u.Username,
				Role:     u.Role,
				IssuedAt: time.Now(),
			}, nil
		}
	}
	return Session{}, trackerr.AuthFailed()
}
