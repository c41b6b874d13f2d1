package health

import (
	"encoding/json"
	"net/http"

	"github.com/mager/bandsaw/database"
	"go.uber.org/zap"
)

// HealthHandler is an http.Handler reporting liveness for the server
// and its database.
type HealthHandler struct {
	log *zap.SugaredLogger
	db  *database.DB
}

func (*HealthHandler) Pattern() string {
	return "/health"
}

func (*HealthHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewHealthHandler builds a new HealthHandler.
func NewHealthHandler(log *zap.SugaredLogger, db *database.DB) *HealthHandler {
	return &HealthHandler{
		log: log,
		db:  db,
	}
}

type Response struct {
	Server   bool `json:"server"`
	Database bool `json:"database"`
}

// ServeHTTP handles an HTTP request to the /health endpoint.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var resp Response

	resp.Server = true

	// Make sure the database connection is still good
	if err := h.db.Ping(); err == nil {
		resp.Database = true
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
