// Package track holds the HTTP handlers for individual tracks: audio
// delivery, tagging, notes, and the merge/split repair operations.
package track

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

// visibleTrack loads a track whose session the user is allowed to see.
// Tracks outside the user's groups come back as NotFound.
func visibleTrack(db *database.DB, user *bandsaw.User, id int64) (*bandsaw.Track, error) {
	t, err := db.GetTrack(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, bandsaw.NotFoundf("Track not found")
	}
	if user != nil && user.Role != bandsaw.RoleSuperadmin {
		s, err := db.GetSession(t.SessionID)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, bandsaw.NotFoundf("Track not found")
		}
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
			return nil, bandsaw.NotFoundf("Track not found")
		}
	}
	return t, nil
}
