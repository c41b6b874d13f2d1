package authn

import (
	"net/http"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// MeHandler is an http.Handler
type MeHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*MeHandler) Pattern() string {
	return "/api/auth/me"
}

func (*MeHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewMeHandler builds a new MeHandler.
func NewMeHandler(log *zap.SugaredLogger, db *database.DB) *MeHandler {
	return &MeHandler{
		log: log,
		db:  db,
	}
}

type MeResponse struct {
	bandsaw.User
	Groups []string `json:"groups"`
}

// Get current user
// @Summary Get current user
// @Description Get the authenticated user and their groups
// @Produce json
// @Success 200 {object} MeResponse
// @Router /api/auth/me [get]
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	if user == nil {
		util.WriteError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	groups, err := h.db.GroupsForUser(user.ID)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	resp := MeResponse{User: *user, Groups: []string{}}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, g.Name)
	}

	util.WriteJSON(w, http.StatusOK, resp)
}
