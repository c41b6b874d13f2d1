// Package song holds the HTTP handlers for the band's song catalog.
// Songs are shared across groups, so there is no per-group scoping here.
package song

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

func loadSong(db *database.DB, id int64) (*bandsaw.Song, error) {
	s, err := db.GetSong(id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, bandsaw.NotFoundf("Song not found")
	}
	return s, nil
}
