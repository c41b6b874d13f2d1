package song

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// RenameSongHandler is an http.Handler
type RenameSongHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*RenameSongHandler) Pattern() string {
	return "/api/songs/{id}/rename"
}

func (*RenameSongHandler) Methods() []string {
	return []string{http.MethodPut}
}

// NewRenameSongHandler builds a new RenameSongHandler.
func NewRenameSongHandler(log *zap.SugaredLogger, db *database.DB) *RenameSongHandler {
	return &RenameSongHandler{
		log: log,
		db:  db,
	}
}

type RenameSongRequest struct {
	Name string `json:"name"`
}

// Rename song
// @Summary Rename song
// @Description Rename a song; the new name must be unique
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Song
// @Router /api/songs/{id}/rename [put]
// @Param id path int true "Song ID"
func (h *RenameSongHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := loadSong(h.db, pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req RenameSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.WriteError(w, http.StatusBadRequest, "Song name cannot be empty")
		return
	}

	if err := h.db.RenameSong(s.ID, req.Name); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	h.log.Infow("Renamed song", "song", s.ID, "from", s.Name, "to", req.Name)
	updated, err := loadSong(h.db, s.ID)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, updated)
}
