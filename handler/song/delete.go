package song

import (
	"net/http"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// DeleteSongHandler is an http.Handler
type DeleteSongHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*DeleteSongHandler) Pattern() string {
	return "/api/songs/{id}"
}

func (*DeleteSongHandler) Methods() []string {
	return []string{http.MethodDelete}
}

// NewDeleteSongHandler builds a new DeleteSongHandler.
func NewDeleteSongHandler(log *zap.SugaredLogger, db *database.DB) *DeleteSongHandler {
	return &DeleteSongHandler{
		log: log,
		db:  db,
	}
}

// Delete song
// @Summary Delete song
// @Description Delete a song; its takes become untagged
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/songs/{id} [delete]
// @Param id path int true "Song ID"
func (h *DeleteSongHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := loadSong(h.db, pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	if err := h.db.DeleteSong(s.ID); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	h.log.Infow("Deleted song", "song", s.ID, "name", s.Name)
	util.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
