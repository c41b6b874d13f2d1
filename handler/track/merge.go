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

// MergeHandler is an http.Handler
type MergeHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
	rec *trackops.Reconciler
}

func (*MergeHandler) Pattern() string {
	return "/api/tracks/{id}/merge"
}

func (*MergeHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewMergeHandler builds a new MergeHandler.
func NewMergeHandler(log *zap.SugaredLogger, db *database.DB, rec *trackops.Reconciler) *MergeHandler {
	return &MergeHandler{
		log: log,
		db:  db,
		rec: rec,
	}
}

type MergeRequest struct {
	OtherTrackID int64  `json:"other_track_id"`
	Format       string `json:"format"`
}

// Merge tracks
// @Summary Merge tracks
// @Description Merge two adjacent tracks, re-exporting the combined audio
// @Accept json
// @Produce json
// @Success 200 {array} bandsaw.Track
// @Router /api/tracks/{id}/merge [post]
// @Param id path int true "Track ID"
func (h *MergeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t, err := visibleTrack(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	format, err := output.FormatByName(req.Format)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	// The other track must be visible too, not just exist.
	if _, err := visibleTrack(h.db, auth.UserFrom(r.Context()), req.OtherTrackID); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	tracks, err := h.rec.Merge(r.Context(), t.ID, req.OtherTrackID, format)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, tracks)
}
