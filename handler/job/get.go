// Package job exposes background job status over plain HTTP polling and
// a WebSocket stream.
package job

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mager/bandsaw/jobs"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// GetJobHandler is an http.Handler
type GetJobHandler struct {
	log *zap.SugaredLogger
	reg *jobs.Registry
}

func (*GetJobHandler) Pattern() string {
	return "/api/jobs/{id}"
}

func (*GetJobHandler) Methods() []string {
	return []string{http.MethodGet}
}

// NewGetJobHandler builds a new GetJobHandler.
func NewGetJobHandler(log *zap.SugaredLogger, reg *jobs.Registry) *GetJobHandler {
	return &GetJobHandler{
		log: log,
		reg: reg,
	}
}

// Get job
// @Summary Get job
// @Description Get a background job's status and progress
// @Produce json
// @Success 200 {object} bandsaw.Job
// @Router /api/jobs/{id} [get]
// @Param id path string true "Job ID"
func (h *GetJobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	job, ok := h.reg.Get(mux.Vars(r)["id"])
	if !ok {
		util.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	util.WriteJSON(w, http.StatusOK, job)
}
