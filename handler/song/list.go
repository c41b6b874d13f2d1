package song

import (
	"net/http"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// ListSongsHandler is an http.Handler
type ListSongsHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*ListSongsHandler) Pattern() string {
	return "/api/songs"
}

func (*ListSongsHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewListSongsHandler builds a new ListSongsHandler.
func NewListSongsHandler(log *zap.SugaredLogger, db *database.DB) *ListSongsHandler {
	return &ListSongsHandler{
		log: log,
		db:  db,
	}
}

// List songs
// @Summary List songs
// @Description List every song with take counts and first/last played dates
// @Produce json
// @Success 200 {array} bandsaw.Song
// @Router /api/songs [get]
func (h *ListSongsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	songs, err := h.db.ListSongs()
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, songs)
}
