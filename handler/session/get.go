package session

import (
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// GetSessionHandler is an http.Handler
type GetSessionHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*GetSessionHandler) Pattern() string {
	return "/api/sessions/{id}"
}

func (*GetSessionHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewGetSessionHandler builds a new GetSessionHandler.
func NewGetSessionHandler(log *zap.SugaredLogger, db *database.DB) *GetSessionHandler {
	return &GetSessionHandler{
		log: log,
		db:  db,
	}
}

type GetSessionResponse struct {
	bandsaw.Session
	Tracks []bandsaw.Track `json:"tracks"`

	// Songs are the tagged song names, most takes first.
	Songs []string `json:"songs"`
}

// Get session
// @Summary Get session
// @Description Get a session with its tracks
// @Produce json
// @Success 200 {object} GetSessionResponse
// @Router /api/sessions/{id} [get]
// @Param id path int true "Session ID"
func (h *GetSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := visibleSession(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	tracks, err := h.db.TracksForSession(s.ID)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	counts := make(map[string]int)
	for _, t := range tracks {
		if t.SongName != nil {
			counts[*t.SongName]++
		}
	}

	util.WriteJSON(w, http.StatusOK, GetSessionResponse{
		Session: *s,
		Tracks:  tracks,
		Songs:   util.RankByCount(counts),
	})
}
