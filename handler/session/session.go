// Package session holds the HTTP handlers for rehearsal sessions: the
// upload entry point plus listing, editing, and deleting what the
// processor produced.
package session

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
)

// pathID parses the named numeric path variable. Zero means missing or
// malformed.
func pathID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}

// visibleSession loads a session the user is allowed to see. Sessions
// outside the user's groups come back as NotFound so their existence
// leaks nothing.
func visibleSession(db *database.DB, user *bandsaw.User, id int64) (*bandsaw.Session, error) {
	s, err := db.GetSession(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, bandsaw.NotFoundf("Session not found")
	}
	if user != nil && user.Role != bandsaw.RoleSuperadmin {
		ids, err := db.GroupIDsForUser(user.ID)
		if err != nil {
			return nil, err
		}
		member := false
		for _, gid := range ids {
			if gid == s.GroupID {
				member = true
				break
			}
		}
		if !member {
			return nil, bandsaw.NotFoundf("Session not found")
		}
	}
	return s, nil
}
