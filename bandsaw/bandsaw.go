package bandsaw

import "fmt"

// Session is one uploaded rehearsal recording and the tracks carved out of it.
type Session struct {
	ID         int64  `json:"id"`
	GroupID    int64  `json:"group_id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	SourceFile string `json:"source_file"`
	Notes      string `json:"notes"`
	CreatedAt  string `json:"created_at"`

	// TrackCount and TaggedCount are aggregates computed on read.
	TrackCount  int    `json:"track_count"`
	TaggedCount int    `json:"tagged_count"`
	SongNames   string `json:"song_names"`
}

// Track is a persisted segment of a session's source recording.
// StartSec and EndSec are always relative to the original source file,
// never to a previously exported artifact.
type Track struct {
	ID          int64   `json:"id"`
	SessionID   int64   `json:"session_id"`
	SongID      *int64  `json:"song_id"`
	SongName    *string `json:"song_name"`
	TrackNumber int     `json:"track_number"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	DurationSec float64 `json:"duration_sec"`
	Fingerprint string  `json:"fingerprint"`
	AudioPath   string  `json:"audio_path"`
	Notes       string  `json:"notes"`
	CreatedAt   string  `json:"created_at"`
}

// Song is a named tune the band plays, with optional chart and lyrics.
type Song struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Chart  string `json:"chart"`
	Lyrics string `json:"lyrics"`
	Notes  string `json:"notes"`

	TakeCount int     `json:"take_count"`
	FirstDate *string `json:"first_date"`
	LastDate  *string `json:"last_date"`
}

// SongTake is one tagged take of a song, with its session context.
type SongTake struct {
	ID          int64   `json:"id"`
	SessionID   int64   `json:"session_id"`
	TrackNumber int     `json:"track_number"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	DurationSec float64 `json:"duration_sec"`
	AudioPath   string  `json:"audio_path"`
	Notes       string  `json:"notes"`
	SessionDate string  `json:"session_date"`
	SessionName string  `json:"session_name"`
	SourceFile  string  `json:"source_file"`
}

// User roles, least to most privileged.
const (
	RoleReadonly   = "readonly"
	RoleEditor     = "editor"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at"`
}

// CanEdit reports whether the role may modify sessions, tracks, and songs.
func (u *User) CanEdit() bool {
	return u.Role == RoleEditor || u.Role == RoleAdmin || u.Role == RoleSuperadmin
}

// CanAdmin reports whether the role may manage users and groups.
func (u *User) CanAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperadmin
}

type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Job statuses.
const (
	JobPending  = "pending"
	JobRunning  = "running"
	JobComplete = "completed"
	JobFailed   = "failed"
)

// Job tracks one background processing run. Progress is 0-100.
type Job struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Status   string         `json:"status"`
	Progress float64        `json:"progress"`
	Message  string         `json:"message"`
	Error    string         `json:"error,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == JobComplete || j.Status == JobFailed
}

// Segment is a candidate song time range within a recording.
type Segment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// MatchResult is a reference-library hit. Similarity is 1 - Distance.
type MatchResult struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// ValidationError rejects an operation whose inputs break an invariant,
// like merging non-adjacent tracks. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NotFoundf builds a NotFoundError.
func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ProcessingError wraps a decode, export, or storage failure. Operations
// that hit one must leave persisted state untouched.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Processingf wraps err as a ProcessingError for the given operation.
func Processingf(op string, err error) error {
	return &ProcessingError{Op: op, Err: err}
}
