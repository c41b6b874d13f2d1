// Package pipeline turns an uploaded recording into a processed session:
// metadata probe, song detection, parallel chroma analysis, export, and
// track rows with auto-tagging against the reference library.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mager/bandsaw/audio"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/fingerprint"
	"github.com/mager/bandsaw/jobs"
	"github.com/mager/bandsaw/output"
	"github.com/mager/bandsaw/splitter"
	"github.com/mager/bandsaw/storage"
)

// Params control one processing run.
type Params struct {
	// SourcePath is the local absolute path of the recording.
	SourcePath string
	GroupID    int64

	// SessionID reuses an already-created session row (the upload
	// handler creates one before answering 202). Zero creates a row.
	SessionID int64

	// Date (YYYY-MM-DD) overrides the date embedded in the filename or
	// the recording's metadata. Notes seed the session's notes field.
	Date  string
	Notes string

	EnergyThresholdDB  float64
	MinSongDurationSec int
	Format             output.AudioFormat

	// ReferenceDir enables auto-tagging when non-empty.
	ReferenceDir string
}

// DefaultParams fills in the detection and encode defaults for a source.
func DefaultParams(sourcePath string, groupID int64) Params {
	return Params{
		SourcePath:         sourcePath,
		GroupID:            groupID,
		EnergyThresholdDB:  splitter.DefaultEnergyThresholdDB,
		MinSongDurationSec: splitter.DefaultMinSongDurationSec,
		Format:             output.DefaultFormat,
	}
}

type Processor struct {
	db     *database.DB
	store  storage.Storage
	dec    audio.Decoder
	prober audio.Prober
	exp    output.Exporter
	lib    *fingerprint.Library
	reg    *jobs.Registry
	cfg    config.Config
	log    *zap.SugaredLogger
}

func NewProcessor(
	db *database.DB,
	store storage.Storage,
	dec audio.Decoder,
	prober audio.Prober,
	exp output.Exporter,
	lib *fingerprint.Library,
	reg *jobs.Registry,
	cfg config.Config,
	log *zap.SugaredLogger,
) *Processor {
	return &Processor{
		db:     db,
		store:  store,
		dec:    dec,
		prober: prober,
		exp:    exp,
		lib:    lib,
		reg:    reg,
		cfg:    cfg,
		log:    log,
	}
}

// Run processes one recording under the given job, marking the job
// completed or failed. The returned session is freshly loaded, with
// track counts filled in.
func (p *Processor) Run(ctx context.Context, jobID string, params Params) (*bandsaw.Session, error) {
	p.reg.SetRunning(jobID)
	session, err := p.run(ctx, jobID, params)
	if err != nil {
		p.reg.Fail(jobID, err)
		return nil, err
	}
	p.reg.Complete(jobID, map[string]any{
		"session_id": session.ID,
		"tracks":     session.TrackCount,
	})
	return session, nil
}

type segmentAnalysis struct {
	index       int
	fingerprint string
	match       *bandsaw.MatchResult
	err         error
}

func (p *Processor) run(ctx context.Context, jobID string, params Params) (*bandsaw.Session, error) {
	if params.Format.Extension == "" {
		params.Format = output.DefaultFormat
	}

	p.reg.SetProgress(jobID, 5, "Reading metadata")
	dateStr := params.Date
	if dateStr == "" {
		dateStr = database.SessionDateFromFilename(params.SourcePath)
	}
	if meta, err := p.prober.Probe(ctx, params.SourcePath); err != nil {
		p.log.Warnw("Probe failed, proceeding without metadata",
			"file", params.SourcePath, "error", err)
	} else if dateStr == "" && meta.RecordingDate != nil {
		dateStr = meta.RecordingDate.Format("2006-01-02")
	}
	var recordingDate *time.Time
	if dateStr != "" {
		if t, err := time.Parse("2006-01-02", dateStr); err == nil {
			recordingDate = &t
		}
	}

	p.reg.SetProgress(jobID, 10, "Detecting songs")
	result, err := splitter.DetectSongs(ctx, p.dec, params.SourcePath, params.EnergyThresholdDB, params.MinSongDurationSec)
	if err != nil {
		return nil, bandsaw.Processingf("detect songs", err)
	}
	segments := result.Segments
	p.log.Infow("Detected songs",
		"file", filepath.Base(params.SourcePath),
		"segments", len(segments),
		"totalSec", result.TotalDurationSec,
	)

	var refs []fingerprint.Entry
	if params.ReferenceDir != "" {
		refs, err = p.lib.Load(ctx, params.ReferenceDir)
		if err != nil {
			p.log.Warnw("Reference library unavailable, skipping matching",
				"dir", params.ReferenceDir, "error", err)
		}
	}

	analyses, err := p.analyzeSegments(ctx, params.SourcePath, segments, refs, func(done int) {
		p.reg.SetProgress(jobID, 10+40*float64(done)/float64(len(segments)),
			fmt.Sprintf("Analyzing track %d/%d", done, len(segments)))
	})
	if err != nil {
		return nil, err
	}

	relSource := p.cfg.MakeRelative(params.SourcePath)
	sessionID := params.SessionID
	if sessionID == 0 {
		sessionID, err = p.db.CreateSession(params.GroupID, relSource, dateStr, params.Notes)
		if err != nil {
			return nil, err
		}
	} else {
		existing, err := p.db.GetSession(sessionID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, bandsaw.NotFoundf("Session not found")
		}
		if existing.Date == "" && dateStr != "" {
			if err := p.db.UpdateSessionDate(sessionID, dateStr); err != nil {
				return nil, err
			}
		}
	}
	if p.store.IsRemote() {
		if err := p.store.Put(ctx, relSource, params.SourcePath); err != nil {
			return nil, bandsaw.Processingf("upload source", err)
		}
	}

	stem := strings.TrimSuffix(filepath.Base(params.SourcePath), filepath.Ext(params.SourcePath))
	outputDir := p.cfg.OutputDirForSource(stem)

	for i, seg := range segments {
		a := analyses[i]
		songName := ""
		if a.match != nil {
			songName = a.match.Name
		}
		start, end := seg.StartSec, seg.EndSec
		name := output.TrackName(output.NameParts{
			Date:        recordingDate,
			TrackNumber: i + 1,
			TotalTracks: len(segments),
			StartSec:    &start,
			EndSec:      &end,
			SongName:    songName,
			Fingerprint: a.fingerprint,
			Extension:   params.Format.Extension,
		})
		dest := filepath.Join(outputDir, name)
		if err := p.exp.Export(ctx, params.SourcePath, dest, seg.StartSec, seg.EndSec, params.Format); err != nil {
			return nil, bandsaw.Processingf("export track", err)
		}

		relPath := p.cfg.MakeRelative(dest)
		trackID, err := p.db.CreateTrack(sessionID, i+1, seg.StartSec, seg.EndSec, relPath, a.fingerprint)
		if err != nil {
			return nil, err
		}
		if a.match != nil {
			if _, err := p.db.TagTrack(trackID, a.match.Name); err != nil {
				return nil, err
			}
			p.log.Infow("Auto-tagged track",
				"track", i+1,
				"song", a.match.Name,
				"similarity", a.match.Similarity,
			)
		}
		if p.store.IsRemote() {
			if err := p.store.Put(ctx, relPath, dest); err != nil {
				return nil, bandsaw.Processingf("upload track", err)
			}
		}
		p.reg.SetProgress(jobID, 50+45*float64(i+1)/float64(len(segments)),
			fmt.Sprintf("Exporting track %d/%d", i+1, len(segments)))
	}

	return p.db.GetSession(sessionID)
}

// analyzeSegments fingerprints and matches every segment using a small
// worker pool; chroma analysis is the expensive part of a run.
func (p *Processor) analyzeSegments(
	ctx context.Context,
	source string,
	segments []bandsaw.Segment,
	refs []fingerprint.Entry,
	onDone func(done int),
) ([]segmentAnalysis, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	workers := runtime.NumCPU() - 1
	if workers < 2 {
		workers = 2
	}
	if workers > len(segments) {
		workers = len(segments)
	}

	jobsCh := make(chan int)
	resultsCh := make(chan segmentAnalysis)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobsCh {
				seg := segments[idx]
				ch, err := fingerprint.ChromagramForFile(ctx, p.dec, source, seg.StartSec, seg.EndSec-seg.StartSec)
				if err != nil {
					resultsCh <- segmentAnalysis{index: idx, err: err}
					continue
				}
				a := segmentAnalysis{index: idx, fingerprint: fingerprint.FromChromagram(ch)}
				if len(refs) > 0 {
					a.match = fingerprint.Match(ch, refs, fingerprint.DefaultMatchThreshold)
				}
				resultsCh <- a
			}
		}()
	}

	go func() {
		for i := range segments {
			jobsCh <- i
		}
		close(jobsCh)
	}()
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	out := make([]segmentAnalysis, len(segments))
	done := 0
	var firstErr error
	for res := range resultsCh {
		out[res.index] = res
		done++
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		if onDone != nil {
			onDone(done)
		}
	}
	if firstErr != nil {
		return nil, bandsaw.Processingf("analyze segments", firstErr)
	}
	return out, nil
}

var Options = NewProcessor
