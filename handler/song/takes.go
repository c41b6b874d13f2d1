package song

import (
	"net/http"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// ListTakesHandler is an http.Handler
type ListTakesHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*ListTakesHandler) Pattern() string {
	return "/api/songs/{id}/tracks"
}

func (*ListTakesHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewListTakesHandler builds a new ListTakesHandler.
func NewListTakesHandler(log *zap.SugaredLogger, db *database.DB) *ListTakesHandler {
	return &ListTakesHandler{
		log: log,
		db:  db,
	}
}

// List song takes
// @Summary List song takes
// @Description List every tagged take of a song across sessions, newest first
// @Produce json
// @Success 200 {array} bandsaw.SongTake
// @Router /api/songs/{id}/tracks [get]
// @Param id path int true "Song ID"
func (h *ListTakesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := loadSong(h.db, pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	takes, err := h.db.TracksForSong(s.ID)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, takes)
}
