package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/jobs"
	"github.com/mager/bandsaw/pipeline"
	"github.com/mager/bandsaw/util"
	"go.uber.org/zap"
)

// UploadHandler is an http.Handler accepting a recording and kicking off
// background processing.
type UploadHandler struct {
	log  *zap.SugaredLogger
	db   *database.DB
	reg  *jobs.Registry
	proc *pipeline.Processor
	cfg  config.Config
}

func (*UploadHandler) Pattern() string {
	return "/api/sessions/upload"
}

func (*UploadHandler) Methods() []string {
	return []string{http.MethodPost}
}

// NewUploadHandler builds a new UploadHandler.
func NewUploadHandler(
	log *zap.SugaredLogger,
	db *database.DB,
	reg *jobs.Registry,
	proc *pipeline.Processor,
	cfg config.Config,
) *UploadHandler {
	return &UploadHandler{
		log:  log,
		db:   db,
		reg:  reg,
		proc: proc,
		cfg:  cfg,
	}
}

type UploadResponse struct {
	ID        string `json:"id"`
	SessionID int64  `json:"session_id"`
}

// Upload recording
// @Summary Upload recording
// @Description Accept a recording, create its session, and start processing
// @Accept mpfd
// @Produce json
// @Success 202 {object} UploadResponse
// @Router /api/sessions/upload [post]
// @Param file formData file true "Audio file"
// @Param group_id formData int false "Group ID"
// @Param date formData string false "Session date (YYYY-MM-DD)"
// @Param notes formData string false "Session notes"
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadMB<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			util.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File exceeds the %d MB upload limit", h.cfg.MaxUploadMB))
			return
		}
		util.WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !config.UploadExtensions[ext] {
		util.WriteError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid file type '%s'. Allowed: %s", ext, config.UploadExtensionList()))
		return
	}

	groupID, err := h.groupID(r)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}

	date := r.FormValue("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD")
			return
		}
	}
	notes := r.FormValue("notes")

	dest := filepath.Join(h.cfg.InputDir, filepath.Base(header.Filename))
	relSource := h.cfg.MakeRelative(dest)

	existing, err := h.db.FindSessionBySource(relSource)
	if err != nil {
		util.WriteDomainError(h.log, w, err)
		return
	}
	if existing != nil {
		util.WriteError(w, http.StatusConflict,
			fmt.Sprintf("A session for '%s' already exists", filepath.Base(header.Filename)))
		return
	}

	if err := h.save(file, dest); err != nil {
		h.log.Errorw("Failed to save upload", "path", dest, "error", err)
		util.WriteError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	sessionID, err := h.db.CreateSession(groupID, relSource, date, notes)
	if err != nil {
		os.Remove(dest)
		util.WriteDomainError(h.log, w, err)
		return
	}

	job := h.reg.Create(jobs.KindProcess)
	params := pipeline.DefaultParams(dest, groupID)
	params.SessionID = sessionID
	params.Date = date
	params.Notes = notes
	params.ReferenceDir = h.cfg.ReferenceDir

	// The job outlives this request.
	go h.proc.Run(context.Background(), job.ID, params)

	h.log.Infow("Upload accepted",
		"file", header.Filename,
		"session", sessionID,
		"jobID", job.ID,
	)
	util.WriteJSON(w, http.StatusAccepted, UploadResponse{ID: job.ID, SessionID: sessionID})
}

// groupID parses the optional group_id field and checks the uploader may
// post into that group.
func (h *UploadHandler) groupID(r *http.Request) (int64, error) {
	raw := r.FormValue("group_id")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, bandsaw.Validationf("Invalid group_id '%s'", raw)
	}

	user := auth.UserFrom(r.Context())
	if user == nil || user.Role == bandsaw.RoleSuperadmin {
		return id, nil
	}
	ids, err := h.db.GroupIDsForUser(user.ID)
	if err != nil {
		return 0, err
	}
	for _, gid := range ids {
		if gid == id {
			return id, nil
		}
	}
	return 0, bandsaw.Validationf("Not a member of group %d", id)
}

func (h *UploadHandler) save(file io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
