package output

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/mager/bandsaw/bandsaw"
)

// Exporter encodes a time range of a source file into a standalone track.
type Exporter interface {
	Export(ctx context.Context, source, dest string, startSec, endSec float64, format AudioFormat) error
}

// ExportSegments writes one file per segment into outputDir, naming each
// with TrackName, and reports progress after every finished track. It
// returns the paths written so far when an export fails partway.
func ExportSegments(
	ctx context.Context,
	exp Exporter,
	source string,
	segments []bandsaw.Segment,
	outputDir string,
	date *time.Time,
	format AudioFormat,
	onProgress func(n, total int, name string),
) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	exported := make([]string, 0, len(segments))
	for i, seg := range segments {
		start, end := seg.StartSec, seg.EndSec
		name := TrackName(NameParts{
			Date:        date,
			TrackNumber: i + 1,
			TotalTracks: len(segments),
			StartSec:    &start,
			EndSec:      &end,
			Extension:   format.Extension,
		})
		dest := filepath.Join(outputDir, name)
		if err := exp.Export(ctx, source, dest, seg.StartSec, seg.EndSec, format); err != nil {
			return exported, err
		}
		exported = append(exported, dest)
		if onProgress != nil {
			onProgress(i+1, len(segments), name)
		}
	}
	return exported, nil
}
