package session

import (
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// ListTracksHandler is an http.Handler
type ListTracksHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*ListTracksHandler) Pattern() string {
	return "/api/sessions/{id}/tracks"
}

func (*ListTracksHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewListTracksHandler builds a new ListTracksHandler.
func NewListTracksHandler(log *zap.SugaredLogger, db *database.DB) *ListTracksHandler {
	return &ListTracksHandler{
		log: log,
		db:  db,
	}
}

// List session tracks
// @Summary List session tracks
// @Description List a session's tracks in track order
// @Produce json
// @Success 200 {array} bandsaw.Track
// @Router /api/sessions/{id}/tracks [get]
// @Param id path int true "Session ID"
func (h *ListTracksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := visibleSession(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	tracks, err := h.db.TracksForSession(s.ID)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, tracks)
}
