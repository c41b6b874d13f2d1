package session

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// UpdateNameHandler is an http.Handler
type UpdateNameHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*UpdateNameHandler) Pattern() string {
	return "/api/sessions/{id}/name"
}

func (*UpdateNameHandler) Methods() []string {
	return []string{http.MethodPut}
}

// NewUpdateNameHandler builds a new UpdateNameHandler.
func NewUpdateNameHandler(log *zap.SugaredLogger, db *database.DB) *UpdateNameHandler {
	return &UpdateNameHandler{
		log: log,
		db:  db,
	}
}

// Rename session
// @Summary Rename session
// @Description Set the session's display name
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Session
// @Router /api/sessions/{id}/name [put]
// @Param id path int true "Session ID"
func (h *UpdateNameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := visibleSession(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.WriteError(w, http.StatusBadRequest, "Name cannot be empty")
		return
	}

	if err := h.db.UpdateSessionName(s.ID, req.Name); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	respondWithSession(h.log, h.db, w, s.ID)
}

// UpdateDateHandler is an http.Handler
type UpdateDateHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*UpdateDateHandler) Pattern() string {
	return "/api/sessions/{id}/date"
}

func (*UpdateDateHandler) Methods() []string {
	return []string{http.MethodPut}
}

// NewUpdateDateHandler builds a new UpdateDateHandler.
func NewUpdateDateHandler(log *zap.SugaredLogger, db *database.DB) *UpdateDateHandler {
	return &UpdateDateHandler{
		log: log,
		db:  db,
	}
}

// Set session date
// @Summary Set session date
// @Description Set the session date, or clear it with an empty string
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Session
// @Router /api/sessions/{id}/date [put]
// @Param id path int true "Session ID"
func (h *UpdateDateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := visibleSession(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
	}

	if err := h.db.UpdateSessionDate(s.ID, req.Date); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	respondWithSession(h.log, h.db, w, s.ID)
}

// UpdateNotesHandler is an http.Handler
type UpdateNotesHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*UpdateNotesHandler) Pattern() string {
	return "/api/sessions/{id}/notes"
}

func (*UpdateNotesHandler) Methods() []string {
	return []string{http.MethodPut}
}

// NewUpdateNotesHandler builds a new UpdateNotesHandler.
func NewUpdateNotesHandler(log *zap.SugaredLogger, db *database.DB) *UpdateNotesHandler {
	return &UpdateNotesHandler{
		log: log,
		db:  db,
	}
}

// Set session notes
// @Summary Set session notes
// @Description Replace the session's notes
// @Accept json
// @Produce json
// @Success 200 {object} bandsaw.Session
// @Router /api/sessions/{id}/notes [put]
// @Param id path int true "Session ID"
func (h *UpdateNotesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := visibleSession(h.db, auth.UserFrom(r.Context()), pathID(r, "id"))
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.db.UpdateSessionNotes(s.ID, req.Notes); err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	respondWithSession(h.log, h.db, w, s.ID)
}

// respondWithSession re-reads the session so the response carries fresh
// aggregates.
func respondWithSession(log *zap.SugaredLogger, db *database.DB, w http.ResponseWriter, id int64) {
	s, err := db.GetSession(id)
	if err != nil {
		util.WriteDomainError(log, w, err)
		return
	}
	if s == nil {
		util.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	util.WriteJSON(w, http.StatusOK, s)
}
