package track

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/storage"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

var audioContentTypes = map[string]string{
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
}

// AudioHandler is an http.Handler
type AudioHandler struct {
	log   *zap.SugaredLogger
	db    *database.DB
	store storage.Storage
	cfg   config.Config
}

func (*AudioHandler) Pattern() string {
	return "/api/tracks/{id}/audio"
}

func (*AudioHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewAudioHandler builds a new AudioHandler.
func NewAudioHandler(log *zap.SugaredLogger, db *database.DB, store storage.Storage, cfg config.Config) *AudioHandler {
	return &AudioHandler{
		log:   log,
		db:    db,
		store: store,
		cfg:   cfg,
	}
}

// Get track audio
// @Summary Get track audio
// @Description Stream the track's audio file, or redirect to remote storage
// @Produce octet-stream
// @Success 200
// @Router /api/tracks/{id}/audio [get]
// @Param id path int true "Track ID"
func (h *AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t, err := visibleTrack(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	if url, ok := h.store.URL(r.Context(), t.AudioPath); ok {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	path := h.cfg.ResolvePath(t.AudioPath)
	if _, err := os.Stat(path); err != nil {
		util.WriteError(w, http.StatusNotFound, "Audio file not found")
		return
	}

	if ct, ok := audioContentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, path)
}
