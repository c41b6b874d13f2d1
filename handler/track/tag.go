package track

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// TagHandler is an http.Handler
type TagHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*TagHandler) Pattern() string {
	return "/api/tracks/{id}/tag"
}

func (*TagHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewTagHandler builds a new TagHandler.
func NewTagHandler(log *zap.SugaredLogger, db *database.DB) *TagHandler {
	return &TagHandler{
		log: log,
		db:  db,
	}
}

type TagRequest struct {
	Name string `json:"name"`
}

// Tag track
// @Summary Tag track
// @Description Tag a track with a song name, creating the song if needed
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Track
// @Router /api/tracks/{id}/tag [post]
// @Param id path int true "Track ID"
func (h *TagHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t, err := visibleTrack(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.WriteError(w, http.StatusBadRequest, "Song name cannot be empty")
		return
	}

	if _, err := h.db.TagTrack(t.ID, req.Name); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	h.log.Infow("Tagged track", "track", t.ID, "song", req.Name)
	respondWithTrack(h.log, h.db, w, t.ID)
}

// UntagHandler is an http.Handler
type UntagHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*UntagHandler) Pattern() string {
	return "/api/tracks/{id}/tag"
}

func (*UntagHandler) Methods() []string {
	return []string{http.MethodDelete}
}

// NewUntagHandler builds a new UntagHandler.
func NewUntagHandler(log *zap.SugaredLogger, db *database.DB) *UntagHandler {
	return &UntagHandler{
		log: log,
		db:  db,
	}
}

// Untag track
// @Summary Untag track
// @Description Remove a track's song tag
// @Produce json
// @Success 200 {object} bandsaw.Track
// @Router /api/tracks/{id}/tag [delete]
// @Param id path int true "Track ID"
func (h *UntagHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t, err := visibleTrack(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	if err := h.db.UntagTrack(t.ID); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	respondWithTrack(h.log, h.db, w, t.ID)
}

// respondWithTrack re-reads the track so the response carries the joined
// song name.
func respondWithTrack(log *zap.SugaredLogger, db *database.DB, w http.ResponseWriter, id int64) {
	t, err := db.GetTrack(id)
	if err != nil {
		util.WriteDomainError(log, w, err)
		return
	}
	if t == nil {
		util.WriteError(w, http.StatusNotFound, "Track not found")
		return
	}
	util.WriteJSON(w, http.StatusOK, t)
}
