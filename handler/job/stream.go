package job

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/jobs"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// StreamHandler pushes job updates over a WebSocket until the job
// reaches a terminal state.
type StreamHandler struct {
	log      *zap.SugaredLogger
	reg      *jobs.Registry
	upgrader websocket.Upgrader
}

func (*StreamHandler) Pattern() string {
	return "/api/jobs/{id}/ws"
}

func (*StreamHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewStreamHandler builds a new StreamHandler.
func NewStreamHandler(log *zap.SugaredLogger, reg *jobs.Registry, cfg config.Config) *StreamHandler {
	return &StreamHandler{
		log: log,
		reg: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range cfg.CORSOrigins {
					if origin == allowed {
						return true
					}
				}
				return false
			},
		},
	}
}

// Stream job updates
// @Summary Stream job updates
// @Description Push job status over a WebSocket once per second
// @Router /api/jobs/{id}/ws [get]
// @Param id path string true "Job ID"
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.reg.Get(id)
	if !ok {
		util.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("Error upgrading connection to WebSocket", "error", err)
		return
	}
	defer conn.Close()

	h.log.Infow("WebSocket client connected", "jobID", id)

	// Send the current state right away so clients don't wait a tick.
	if err := conn.WriteJSON(job); err != nil {
		h.log.Errorw("Error sending WebSocket message", "error", err)
		return
	}
	if job.Done() {
		return
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		job, ok := h.reg.Get(id)
		if !ok {
			return
		}
		if err := conn.WriteJSON(job); err != nil {
			h.log.Errorw("Error sending WebSocket message", "error", err)
			return
		}
		if job.Done() {
			return
		}
	}
}
