package track

import (
	"encoding/json"
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/output"
	"github.com/mager/bandsaw/trackops"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// SplitHandler is an http.Handler
type SplitHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
	rec *trackops.Reconciler
}

func (*SplitHandler) Pattern() string {
	return "/api/tracks/{id}/split"
}

func (*SplitHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewSplitHandler builds a new SplitHandler.
func NewSplitHandler(log *zap.SugaredLogger, db *database.DB, rec *trackops.Reconciler) *SplitHandler {
	return &SplitHandler{
		log: log,
		db:  db,
		rec: rec,
	}
}

type SplitRequest struct {
	// OffsetSec is the split point measured from the track's start.
	OffsetSec float64 `json:"offset_sec"`
	Format    string  `json:"format"`
}

// Split track
// @Summary Split track
// @Description Split a track in two, re-exporting both halves
// @Accept json
// @Produce json
// @Success 200 {array} bandsaw.Track
// @Router /api/tracks/{id}/split [post]
// @Param id path int true "Track ID"
func (h *SplitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t, err := visibleTrack(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req SplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	format, err := output.FormatByName(req.Format)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	tracks, err := h.rec.Split(r.Context(), t.ID, req.OffsetSec, format)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, tracks)
}
