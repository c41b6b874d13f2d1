// Package admin holds the user and group management handlers. Every
// operation here requires an admin role on top of the usual auth.
package admin

import (
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/util"
)

// requireAdmin writes a 403 and returns nil unless the caller may manage
// users and groups.
func requireAdmin(w http.ResponseWriter, r *http.Request) *bandsaw.User {
	user := auth.UserFrom(r.Context())
	if user == nil || !user.CanAdmin() {
		util.WriteError(w, http.StatusForbidden, "Forbidden")
		return nil
	}
	return user
}

func validRole(role string) bool {
	switch role {
	case bandsaw.RoleReadonly, bandsaw.RoleEditor, bandsaw.RoleAdmin, bandsaw.RoleSuperadmin:
		return true
	}
	return false
}
