package session

import (
	"net/http"
	"strconv"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/storage"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// DeleteSessionHandler is an http.Handler
type DeleteSessionHandler struct {
	log   *zap.SugaredLogger
	db    *database.DB
	store storage.Storage
}

func (*DeleteSessionHandler) Pattern() string {
	return "/api/sessions/{id}"
}

func (*DeleteSessionHandler) Methods() []string {
	return []string{http.MethodDelete}
}

// NewDeleteSessionHandler builds a new DeleteSessionHandler.
func NewDeleteSessionHandler(log *zap.SugaredLogger, db *database.DB, store storage.Storage) *DeleteSessionHandler {
	return &DeleteSessionHandler{
		log:   log,
		db:    db,
		store: store,
	}
}

// Delete session
// @Summary Delete session
// @Description Delete a session and its tracks, optionally removing audio files
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/sessions/{id} [delete]
// @Param id path int true "Session ID"
// @Param delete_files query bool false "Also delete audio files"
func (h *DeleteSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := visibleSession(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	deleteFiles, _ := strconv.ParseBool(r.URL.Query().Get("delete_files"))

	// Collect audio keys before the cascade wipes the track rows.
	var keys []string
	if deleteFiles {
		tracks, err := h.db.TracksForSession(s.ID)
		if err != nil {
			util.WriteDomainError(h.log, w, err)
			return
		}
		for _, t := range tracks {
			keys = append(keys, t.AudioPath)
		}
		keys = append(keys, s.SourceFile)
	}

	if err := h.db.DeleteSession(s.ID); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	for _, key := range keys {
		if err := h.store.Delete(r.Context(), key); err != nil {
			h.log.Warnw("Failed to delete audio file", "path", key, "error", err)
		}
	}

	h.log.Infow("Deleted session", "session", s.ID, "files", deleteFiles)
	util.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
