// Package trackops merges and splits tracks by re-exporting audio from
// the session source file, then reconciling rows, files, and numbering.
package trackops

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/output"
	"github.com/mager/bandsaw/storage"
)

// Reconciler keeps track rows, audio files, and track numbering
// consistent through merges and splits. Operations on the same session
// serialize; different sessions proceed in parallel.
type Reconciler struct {
	db    *database.DB
	store storage.Storage
	exp   output.Exporter
	cfg   config.Config
	log   *zap.SugaredLogger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewReconciler(db *database.DB, store storage.Storage, exp output.Exporter, cfg config.Config, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		db:    db,
		store: store,
		exp:   exp,
		cfg:   cfg,
		log:   log,
		locks: map[int64]*sync.Mutex{},
	}
}

func (r *Reconciler) sessionLock(sessionID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

// Merge joins two adjacent tracks into one, re-exporting the combined
// range from the session source. The earlier track's song tag and notes
// survive. Nothing is deleted until the merged audio exists, so a failed
// export leaves the session untouched. Returns the session's full track
// list after renumbering.
func (r *Reconciler) Merge(ctx context.Context, trackID1, trackID2 int64, format output.AudioFormat) ([]bandsaw.Track, error) {
	t1, err := r.db.GetTrack(trackID1)
	if err != nil {
		return nil, err
	}
	t2, err := r.db.GetTrack(trackID2)
	if err != nil {
		return nil, err
	}
	if t1 == nil || t2 == nil {
		return nil, bandsaw.NotFoundf("Track not found")
	}
	if t1.SessionID != t2.SessionID {
		return nil, bandsaw.Validationf("Tracks must belong to the same session")
	}
	if t1.TrackNumber > t2.TrackNumber {
		t1, t2 = t2, t1
	}
	if t2.TrackNumber-t1.TrackNumber != 1 {
		return nil, bandsaw.Validationf("Tracks must be adjacent")
	}

	lock := r.sessionLock(t1.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := r.db.GetSession(t1.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, bandsaw.NotFoundf("Session not found")
	}

	sourceFile := r.cfg.ResolvePath(session.SourceFile)
	sessionDate := parseSessionDate(session.Date)
	outputDir := filepath.Dir(r.cfg.ResolvePath(t1.AudioPath))

	if r.store.IsRemote() {
		if sourceFile, err = r.store.Get(ctx, session.SourceFile, sourceFile); err != nil {
			return nil, bandsaw.Processingf("fetch source", err)
		}
	}

	newStart, newEnd := t1.StartSec, t2.EndSec

	existing, err := r.db.TracksForSession(session.ID)
	if err != nil {
		return nil, err
	}
	total := len(existing) - 1
	if total < 1 {
		total = 1
	}

	name := output.TrackName(output.NameParts{
		Date:        sessionDate,
		TrackNumber: t1.TrackNumber,
		TotalTracks: total,
		StartSec:    &newStart,
		EndSec:      &newEnd,
		Extension:   format.Extension,
	})
	newPath := filepath.Join(outputDir, name)

	if err := r.exp.Export(ctx, sourceFile, newPath, newStart, newEnd, format); err != nil {
		return nil, bandsaw.Processingf("export merged track", err)
	}

	songID, notes := t1.SongID, t1.Notes

	r.deleteAudio(ctx, t1.AudioPath)
	r.deleteAudio(ctx, t2.AudioPath)
	if err := r.db.DeleteTrack(t1.ID); err != nil {
		return nil, err
	}
	if err := r.db.DeleteTrack(t2.ID); err != nil {
		return nil, err
	}

	newRel := r.cfg.MakeRelative(newPath)
	newID, err := r.db.CreateTrack(session.ID, t1.TrackNumber, newStart, newEnd, newRel, "")
	if err != nil {
		return nil, err
	}
	if r.store.IsRemote() {
		if err := r.store.Put(ctx, newRel, newPath); err != nil {
			return nil, bandsaw.Processingf("upload merged track", err)
		}
	}

	if songID != nil {
		if err := r.db.SetTrackSong(newID, *songID); err != nil {
			return nil, err
		}
	}
	if notes != "" {
		if err := r.db.UpdateTrackNotes(newID, notes); err != nil {
			return nil, err
		}
	}

	if err := r.renumber(ctx, session.ID, sessionDate, outputDir, format); err != nil {
		return nil, err
	}

	r.log.Infow("Merged tracks",
		"sessionID", session.ID,
		"trackID1", trackID1,
		"trackID2", trackID2,
		"startSec", newStart,
		"endSec", newEnd,
	)
	return r.db.TracksForSession(session.ID)
}

// Split cuts a track at splitAtSec, measured from the track's start.
// Both halves are re-exported from the session source before the old
// track is removed. The first half keeps the song tag and notes; the
// second half starts blank. Returns the session's full track list after
// renumbering.
func (r *Reconciler) Split(ctx context.Context, trackID int64, splitAtSec float64, format output.AudioFormat) ([]bandsaw.Track, error) {
	track, err := r.db.GetTrack(trackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, bandsaw.NotFoundf("Track not found")
	}
	if splitAtSec <= 1.0 || splitAtSec >= track.DurationSec-1.0 {
		return nil, bandsaw.Validationf("Split point must be more than 1 second from either edge")
	}

	lock := r.sessionLock(track.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := r.db.GetSession(track.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, bandsaw.NotFoundf("Session not found")
	}

	absoluteSplit := track.StartSec + splitAtSec
	sourceFile := r.cfg.ResolvePath(session.SourceFile)
	sessionDate := parseSessionDate(session.Date)
	outputDir := filepath.Dir(r.cfg.ResolvePath(track.AudioPath))

	if r.store.IsRemote() {
		if sourceFile, err = r.store.Get(ctx, session.SourceFile, sourceFile); err != nil {
			return nil, bandsaw.Processingf("fetch source", err)
		}
	}

	existing, err := r.db.TracksForSession(session.ID)
	if err != nil {
		return nil, err
	}
	total := len(existing) + 1

	firstStart, secondEnd := track.StartSec, track.EndSec
	name1 := output.TrackName(output.NameParts{
		Date:        sessionDate,
		TrackNumber: track.TrackNumber,
		TotalTracks: total,
		StartSec:    &firstStart,
		EndSec:      &absoluteSplit,
		Extension:   format.Extension,
	})
	path1 := filepath.Join(outputDir, name1)
	if err := r.exp.Export(ctx, sourceFile, path1, track.StartSec, absoluteSplit, format); err != nil {
		return nil, bandsaw.Processingf("export first half", err)
	}

	name2 := output.TrackName(output.NameParts{
		Date:        sessionDate,
		TrackNumber: track.TrackNumber + 1,
		TotalTracks: total,
		StartSec:    &absoluteSplit,
		EndSec:      &secondEnd,
		Extension:   format.Extension,
	})
	path2 := filepath.Join(outputDir, name2)
	if err := r.exp.Export(ctx, sourceFile, path2, absoluteSplit, track.EndSec, format); err != nil {
		return nil, bandsaw.Processingf("export second half", err)
	}

	songID, notes := track.SongID, track.Notes

	r.deleteAudio(ctx, track.AudioPath)
	if err := r.db.DeleteTrack(track.ID); err != nil {
		return nil, err
	}

	rel1 := r.cfg.MakeRelative(path1)
	firstID, err := r.db.CreateTrack(session.ID, track.TrackNumber, track.StartSec, absoluteSplit, rel1, "")
	if err != nil {
		return nil, err
	}
	if r.store.IsRemote() {
		if err := r.store.Put(ctx, rel1, path1); err != nil {
			return nil, bandsaw.Processingf("upload first half", err)
		}
	}
	if songID != nil {
		if err := r.db.SetTrackSong(firstID, *songID); err != nil {
			return nil, err
		}
	}
	if notes != "" {
		if err := r.db.UpdateTrackNotes(firstID, notes); err != nil {
			return nil, err
		}
	}

	rel2 := r.cfg.MakeRelative(path2)
	if _, err := r.db.CreateTrack(session.ID, track.TrackNumber+1, absoluteSplit, track.EndSec, rel2, ""); err != nil {
		return nil, err
	}
	if r.store.IsRemote() {
		if err := r.store.Put(ctx, rel2, path2); err != nil {
			return nil, bandsaw.Processingf("upload second half", err)
		}
	}

	if err := r.renumber(ctx, session.ID, sessionDate, outputDir, format); err != nil {
		return nil, err
	}

	r.log.Infow("Split track",
		"sessionID", session.ID,
		"trackID", trackID,
		"splitAtSec", splitAtSec,
	)
	return r.db.TracksForSession(session.ID)
}

// renumber reassigns track numbers sequentially by start time, renaming
// audio files to match. Tracks already numbered correctly are left
// alone, so their filenames (including any song suffix from the initial
// export) survive.
func (r *Reconciler) renumber(ctx context.Context, sessionID int64, date *time.Time, outputDir string, format output.AudioFormat) error {
	tracks, err := r.db.TracksForSession(sessionID)
	if err != nil {
		return err
	}
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].StartSec < tracks[j].StartSec })
	total := len(tracks)

	for i := range tracks {
		track := &tracks[i]
		expected := i + 1
		if track.TrackNumber == expected {
			continue
		}
		start, end := track.StartSec, track.EndSec
		name := output.TrackName(output.NameParts{
			Date:        date,
			TrackNumber: expected,
			TotalTracks: total,
			StartSec:    &start,
			EndSec:      &end,
			Extension:   format.Extension,
		})
		newRel := r.cfg.MakeRelative(filepath.Join(outputDir, name))
		if err := r.store.Rename(ctx, track.AudioPath, newRel); err != nil {
			return bandsaw.Processingf("rename track audio", err)
		}
		if err := r.db.UpdateTrack(track.ID, map[string]any{
			"track_number": expected,
			"audio_path":   newRel,
		}); err != nil {
			return err
		}
	}
	return nil
}

// deleteAudio is best-effort: once the replacement audio exists, a
// leftover file must not fail the whole operation.
func (r *Reconciler) deleteAudio(ctx context.Context, key string) {
	if err := r.store.Delete(ctx, key); err != nil {
		r.log.Warnw("Failed to delete old track audio", "path", key, "error", err)
	}
}

func parseSessionDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

var Options = NewReconciler
