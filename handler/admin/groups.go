package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// ListGroupsHandler is an http.Handler
type ListGroupsHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*ListGroupsHandler) Pattern() string {
	return "/api/admin/groups"
}

func (*ListGroupsHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewListGroupsHandler builds a new ListGroupsHandler.
func NewListGroupsHandler(log *zap.SugaredLogger, db *database.DB) *ListGroupsHandler {
	return &ListGroupsHandler{
		log: log,
		db:  db,
	}
}

// List groups
// @Summary List groups
// @Description List every group
// @Produce json
// @Success 200 {array} bandsaw.Group
// @Router /api/admin/groups [get]
func (h *ListGroupsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	groups, err := h.db.ListGroups()
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	util.WriteJSON(w, http.StatusOK, groups)
}

// CreateGroupHandler is an http.Handler
type CreateGroupHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*CreateGroupHandler) Pattern() string {
	return "/api/admin/groups"
}

func (*CreateGroupHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewCreateGroupHandler builds a new CreateGroupHandler.
func NewCreateGroupHandler(log *zap.SugaredLogger, db *database.DB) *CreateGroupHandler {
	return &CreateGroupHandler{
		log: log,
		db:  db,
	}
}

type CreateGroupRequest struct {
	Name string `json:"name"`
}

// Create group
// @Summary Create group
// @Description Create a group; the name must be unique
// @Accept json
// @Produce json
// @Success 201 {object} bandsaw.Group
// @Router /api/admin/groups [post]
func (h *CreateGroupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.WriteError(w, http.StatusBadRequest, "Group name cannot be empty")
		return
	}

	existing, err := h.db.GetGroupByName(req.Name)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	if existing != nil {
		util.WriteError(w, http.StatusConflict, fmt.Sprintf("Group '%s' already exists", req.Name))
		return
	}

	id, err := h.db.CreateGroup(req.Name)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	h.log.Infow("Created group", "group", id, "name", req.Name)
	g, err := h.db.GetGroupByName(req.Name)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, g)
}
