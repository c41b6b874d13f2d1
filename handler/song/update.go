package song

import (
	"encoding/json"
	"net/http"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// UpdateSongHandler is an http.Handler
type UpdateSongHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*UpdateSongHandler) Pattern() string {
	return "/api/songs/{id}"
}

func (*UpdateSongHandler) Methods() []string {
	return []string{http.MethodPut}
}

// NewUpdateSongHandler builds a new UpdateSongHandler.
func NewUpdateSongHandler(log *zap.SugaredLogger, db *database.DB) *UpdateSongHandler {
	return &UpdateSongHandler{
		log: log,
		db:  db,
	}
}

type UpdateSongRequest struct {
	Chart  string `json:"chart"`
	Lyrics string `json:"lyrics"`
	Notes  string `json:"notes"`
}

// Update song
// @Summary Update song
// @Description Replace a song's chart, lyrics, and notes
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Song
// @Router /api/songs/{id} [put]
// @Param id path int true "Song ID"
func (h *UpdateSongHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := loadSong(h.db, pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req UpdateSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.db.UpdateSongDetails(s.ID, req.Chart, req.Lyrics, req.Notes); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	updated, err := loadSong(h.db, s.ID)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, updated)
}
