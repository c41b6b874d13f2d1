package song

import (
	"net/http"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// GetSongHandler is an http.Handler
type GetSongHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*GetSongHandler) Pattern() string {
	return "/api/songs/{id}"
}

func (*GetSongHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewGetSongHandler builds a new GetSongHandler.
func NewGetSongHandler(log *zap.SugaredLogger, db *database.DB) *GetSongHandler {
	return &GetSongHandler{
		log: log,
		db:  db,
	}
}

// Get song
// @Summary Get song
// @Description Get a song with its chart, lyrics, and notes
// @Produce json
// @Success 200 {object} bandsaw.Song
// @Router /api/songs/{id} [get]
// @Param id path int true "Song ID"
func (h *GetSongHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := loadSong(h.db, pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, s)
}
