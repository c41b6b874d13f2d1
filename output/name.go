package output

import (
	"fmt"
	"strconv"
	"time"
)

// NameParts carries everything that can appear in an exported track
// filename. StartSec and EndSec are optional as a pair; SongName displaces
// Fingerprint when both are set.
type NameParts struct {
	Date        *time.Time
	TrackNumber int
	TotalTracks int
	StartSec    *float64
	EndSec      *float64
	SongName    string
	Fingerprint string
	Extension   string
}

func formatTimestamp(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%02dm%02ds", total/60, total%60)
}

// TrackName builds the canonical track filename,
// {date}_{number}[_{start}-{end}][_{song-or-fingerprint}]{ext}, with the
// track number zero-padded to the width of the track count.
func TrackName(p NameParts) string {
	dateStr := "unknown-date"
	if p.Date != nil {
		dateStr = p.Date.Format("2006-01-02")
	}
	width := len(strconv.Itoa(p.TotalTracks))
	name := fmt.Sprintf("%s_%0*d", dateStr, width, p.TrackNumber)
	if p.StartSec != nil && p.EndSec != nil {
		name += fmt.Sprintf("_%s-%s", formatTimestamp(*p.StartSec), formatTimestamp(*p.EndSec))
	}
	switch {
	case p.SongName != "":
		name += "_" + p.SongName
	case p.Fingerprint != "":
		name += "_" + p.Fingerprint
	}
	ext := p.Extension
	if ext == "" {
		ext = DefaultFormat.Extension
	}
	return name + ext
}
