// Package splitter finds the songs in a long rehearsal recording by
// looking for sustained high-energy regions in a per-second RMS profile.
package splitter

import (
	"context"
	"math"

	"github.com/mager/bandsaw/audio"
	"github.com/mager/bandsaw/bandsaw"
)

const (
	// DefaultEnergyThresholdDB separates playing from room noise.
	DefaultEnergyThresholdDB = -30.0
	// DefaultMinSongDurationSec drops tuning and noodling between songs.
	DefaultMinSongDurationSec = 120

	// AnalysisSampleRate is all the resolution energy profiling needs.
	AnalysisSampleRate = 8000

	windowSec          = 1
	smoothingWindowSec = 15
	paddingSec         = 2.0
)

// Result holds the detected segments and the duration that was analyzed.
type Result struct {
	Segments         []bandsaw.Segment `json:"segments"`
	TotalDurationSec float64           `json:"total_duration_sec"`
}

// ComputeRMSProfile decodes the file to mono 8 kHz PCM and returns one
// RMS dB value per second. A trailing partial window is dropped.
func ComputeRMSProfile(ctx context.Context, dec audio.Decoder, path string) ([]float64, error) {
	samples, err := dec.Decode(ctx, path, AnalysisSampleRate, 0, 0)
	if err != nil {
		return nil, err
	}
	return rmsProfile(samples), nil
}

func rmsProfile(samples []int16) []float64 {
	perWindow := AnalysisSampleRate * windowSec
	var profile []float64
	for off := 0; off+perWindow <= len(samples); off += perWindow {
		var sumSq float64
		for _, s := range samples[off : off+perWindow] {
			v := float64(s)
			sumSq += v * v
		}
		meanSq := sumSq / float64(perWindow)
		db := -100.0
		if meanSq > 0 {
			db = 10 * math.Log10(meanSq/(32768*32768))
		}
		profile = append(profile, db)
	}
	return profile
}

// SmoothProfile applies a centered rolling mean so brief spikes and dips
// do not split a song. Profiles no longer than the window pass through
// unchanged.
func SmoothProfile(values []float64, window int) []float64 {
	if len(values) <= window {
		return values
	}
	half := window / 2
	smoothed := make([]float64, len(values))
	for i := range values {
		start := max(0, i-half)
		end := min(len(values), i+half+1)
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		smoothed[i] = sum / float64(end-start)
	}
	return smoothed
}

// DetectSongs profiles the file and returns the regions that stay above
// energyThresholdDB for at least minSongDurationSec, padded by two seconds
// on each side. An unreadable profile yields an empty result, not an
// error.
func DetectSongs(ctx context.Context, dec audio.Decoder, path string, energyThresholdDB float64, minSongDurationSec int) (*Result, error) {
	profile, err := ComputeRMSProfile(ctx, dec, path)
	if err != nil {
		return nil, err
	}
	return detect(profile, energyThresholdDB, minSongDurationSec), nil
}

func detect(profile []float64, energyThresholdDB float64, minSongDurationSec int) *Result {
	if len(profile) == 0 {
		return &Result{Segments: []bandsaw.Segment{}}
	}

	totalDuration := float64(len(profile) * windowSec)
	smoothed := SmoothProfile(profile, smoothingWindowSec)

	type span struct{ start, end int }
	var raw []span
	inSong := false
	songStart := 0
	for i, db := range smoothed {
		if db >= energyThresholdDB {
			if !inSong {
				songStart = i
				inSong = true
			}
		} else if inSong {
			raw = append(raw, span{songStart, i})
			inSong = false
		}
	}
	if inSong {
		raw = append(raw, span{songStart, len(smoothed)})
	}

	segments := make([]bandsaw.Segment, 0, len(raw))
	for _, r := range raw {
		if (r.end-r.start)*windowSec < minSongDurationSec {
			continue
		}
		segments = append(segments, bandsaw.Segment{
			StartSec: math.Max(0, float64(r.start*windowSec)-paddingSec),
			EndSec:   math.Min(totalDuration, float64(r.end*windowSec)+paddingSec),
		})
	}

	// Padding can run adjacent segments together; split the overlap down
	// the middle so exports never share audio.
	for i := 1; i < len(segments); i++ {
		if segments[i].StartSec < segments[i-1].EndSec {
			mid := (segments[i].StartSec + segments[i-1].EndSec) / 2
			segments[i-1].EndSec = mid
			segments[i].StartSec = mid
		}
	}

	return &Result{Segments: segments, TotalDurationSec: totalDuration}
}
