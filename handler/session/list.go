package session

import (
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// ListSessionsHandler is an http.Handler
type ListSessionsHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*ListSessionsHandler) Pattern() string {
	return "/api/sessions"
}

func (*ListSessionsHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewListSessionsHandler builds a new ListSessionsHandler.
func NewListSessionsHandler(log *zap.SugaredLogger, db *database.DB) *ListSessionsHandler {
	return &ListSessionsHandler{
		log: log,
		db:  db,
	}
}

type SessionSummary struct {
	bandsaw.Session
	Songs []string `json:"songs"`
}

// List sessions
// @Summary List sessions
// @Description List sessions visible to the user, newest first
// @Produce json
// @Success 200 {array} SessionSummary
// @Router /api/sessions [get]
func (h *ListSessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())

	// Superadmins see every group's sessions.
	var groupIDs []int64
	if user != nil && user.Role != bandsaw.RoleSuperadmin {
		ids, err := h.db.GroupIDsForUser(user.ID)
		if err != nil {
			util.WriteDomainError(h.log, w, err)
			return
		}
		groupIDs = ids
	}

	sessions, err := h.db.ListSessions(groupIDs)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	resp := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, SessionSummary{
			Session: s,
			Songs:   util.SplitSongNames(s.SongNames),
		})
	}

	util.WriteJSON(w, http.StatusOK, resp)
}
