package auth

import (
	"fmt"

	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
	"github.com/volumod/tracker/internal/trackerr"
)

// RegisterUser creates a new account. The acting session needs the
// manage_users capability. Usernames are unique across the table.
func RegisterUser(s *store.Store, sess Session, username, password, fullName string, role record.Role) (*record.User, error) {
	if !Authorize(sess, CapManageUsers) {
		return nil, trackerr.Forbidden("manage users")
	}

	existing, err := store.AllWhere(s, record.Users, func(u *record.User) bool {
		return u.Username == username
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, trackerr.Validation(
			fmt.Sprintf("username %q is taken", username),
			"usernames are unique")
	}

	u := &record.User{
		Username: username,
		Password: password,
		Role:     role,
		FullName: fullName,
	}
	if err := store.Save(s, record.Users, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces a user's password after verifying the current
// one. Sessions may only change their own password unless they can
// manage users.
func ChangePassword(s *store.Store, sess Session, userID, current, next string) error {
	if userID != sess.UserID && !Authorize(sess, CapManageUsers) {
		return trackerr.Forbidden("change another user's password")
	}

	u, err := store.Get(s, record.Users, userID)
	if err != nil {
		return err
	}
	if u.Password != current {
		return trackerr.AuthFailed()
	}

	u.Password = next
	return store.Update(s, record.Users, userID, u)
}
