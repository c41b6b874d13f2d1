package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// ListUsersHandler is an http.Handler
type ListUsersHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*ListUsersHandler) Pattern() string {
	return "/api/admin/users"
}

func (*ListUsersHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewListUsersHandler builds a new ListUsersHandler.
func NewListUsersHandler(log *zap.SugaredLogger, db *database.DB) *ListUsersHandler {
	return &ListUsersHandler{
		log: log,
		db:  db,
	}
}

type AdminUser struct {
	bandsaw.User
	Groups []string `json:"groups"`
}

// List users
// @Summary List users
// @Description List every user with their group memberships
// @Produce json
// @Success 200 {array} AdminUser
// @Router /api/admin/users [get]
func (h *ListUsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	users, err := h.db.ListUsers()
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	resp := make([]AdminUser, 0, len(users))
	for _, u := range users {
		groups, err := h.db.GroupsForUser(u.ID)
		if err != nil {
			util.WriteDomainError(h.log, w, err)
			return
		}
		au := AdminUser{User: u, Groups: []string{}}
		for _, g := range groups {
			au.Groups = append(au.Groups, g.Name)
		}
		resp = append(resp, au)
	}

	util.WriteJSON(w, http.StatusOK, resp)
}

// CreateUserHandler is an http.Handler
type CreateUserHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*CreateUserHandler) Pattern() string {
	return "/api/admin/users"
}

func (*CreateUserHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewCreateUserHandler builds a new CreateUserHandler.
func NewCreateUserHandler(log *zap.SugaredLogger, db *database.DB) *CreateUserHandler {
	return &CreateUserHandler{
		log: log,
		db:  db,
	}
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Create user
// @Summary Create user
// @Description Create a user; the email must be unique
// @Accept json
// @Produce json
// @Success 201 {object} bandsaw.User
// @Router /api/admin/users [post]
func (h *CreateUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		util.WriteError(w, http.StatusBadRequest, "Email cannot be empty")
		return
	}
	if req.Password == "" {
		util.WriteError(w, http.StatusBadRequest, "Password cannot be empty")
		return
	}
	if req.Role == "" {
		req.Role = bandsaw.RoleEditor
	}
	if !validRole(req.Role) {
		util.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid role '%s'", req.Role))
		return
	}

	existing, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	if existing != nil {
		util.WriteError(w, http.StatusConflict, fmt.Sprintf("User '%s' already exists", req.Email))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	id, err := h.db.CreateUser(req.Email, hash, req.Name, req.Role)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	h.log.Infow("Created user", "user", id, "email", req.Email, "role", req.Role)
	u, err := h.db.GetUser(id)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, u)
}
