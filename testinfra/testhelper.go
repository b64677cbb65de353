package testinfra

import (
	"upkeep/authority"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
)

// BuildSession builds an authenticated session carrying the given roles.
func BuildSession(uid types.ID, roles ...string) *session.Session {
	return &session.Session{
		Token:    "test-token",
		Identity: session.Identity{ID: uid, Name: "user" + uid.String(), Nickname: "user" + uid.String()},
		Perms:    authority.Permissions(roles),
	}
}
