package track

import (
	"encoding/json"
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// NotesHandler is an http.Handler
type NotesHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*NotesHandler) Pattern() string {
	return "/api/tracks/{id}/notes"
}

func (*NotesHandler) Methods() []string {
	return []string{http.MethodPut}
}

// NewNotesHandler builds a new NotesHandler.
func NewNotesHandler(log *zap.SugaredLogger, db *database.DB) *NotesHandler {
	return &NotesHandler{
		log: log,
		db:  db,
	}
}

// Set track notes
// @Summary Set track notes
// @Description Replace a track's notes
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Track
// @Router /api/tracks/{id}/notes [put]
// @Param id path int true "Track ID"
func (h *NotesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t, err := visibleTrack(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.db.UpdateTrackNotes(t.ID, req.Notes); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	respondWithTrack(h.log, h.db, w, t.ID)
}
