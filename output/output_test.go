package output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mager/bandsaw/bandsaw"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func secPtr(s float64) *float64 { return &s }

func TestTrackName(t *testing.T) {
	cases := []struct {
		name  string
		parts NameParts
		want  string
	}{
		{
			name: "date and range",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 1, TotalTracks: 5,
				StartSec: secPtr(120), EndSec: secPtr(360),
			},
			want: "2026-02-14_1_02m00s-06m00s.m4a",
		},
		{
			name: "number padded to track count width",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 3, TotalTracks: 12,
				StartSec: secPtr(0), EndSec: secPtr(90),
			},
			want: "2026-02-14_03_00m00s-01m30s.m4a",
		},
		{
			name:  "no date and no range",
			parts: NameParts{TrackNumber: 1, TotalTracks: 1},
			want:  "unknown-date_1.m4a",
		},
		{
			name: "song suffix",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 1, TotalTracks: 5,
				StartSec: secPtr(120), EndSec: secPtr(360), SongName: "Fat-Cat",
			},
			want: "2026-02-14_1_02m00s-06m00s_Fat-Cat.m4a",
		},
		{
			name: "fingerprint suffix",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 2, TotalTracks: 5,
				StartSec: secPtr(400), EndSec: secPtr(650), Fingerprint: "abc123",
			},
			want: "2026-02-14_2_06m40s-10m50s_abc123.m4a",
		},
		{
			name: "song displaces fingerprint",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 1, TotalTracks: 1,
				SongName: "Fat-Cat", Fingerprint: "abc123",
			},
			want: "2026-02-14_1_Fat-Cat.m4a",
		},
		{
			name: "fractional seconds truncate",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 1, TotalTracks: 1,
				StartSec: secPtr(125.9), EndSec: secPtr(360.5),
			},
			want: "2026-02-14_1_02m05s-06m00s.m4a",
		},
		{
			name: "explicit extension",
			parts: NameParts{
				Date: datePtr(2026, 2, 14), TrackNumber: 1, TotalTracks: 1,
				Extension: ".ogg",
			},
			want: "2026-02-14_1.ogg",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := TrackName(c.parts); got != c.want {
				t.Errorf("TrackName = %q, want %q", got, c.want)
			}
		})
	}
}

func TestFormatByName(t *testing.T) {
	for name, want := range map[string]AudioFormat{
		"":     AAC,
		"aac":  AAC,
		"opus": OPUS,
		"WAV":  WAV,
	} {
		got, err := FormatByName(name)
		if err != nil {
			t.Errorf("FormatByName(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("FormatByName(%q) = %+v, want %+v", name, got, want)
		}
	}

	_, err := FormatByName("mp3")
	var vErr *bandsaw.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if vErr.Msg != "Unknown audio format 'mp3'" {
		t.Errorf("message = %q", vErr.Msg)
	}
}

type stubExporter struct {
	calls    int
	failCall int // 1-based; 0 never fails
	dests    []string
}

func (e *stubExporter) Export(_ context.Context, _, dest string, _, _ float64, _ AudioFormat) error {
	e.calls++
	if e.failCall > 0 && e.calls == e.failCall {
		return fmt.Errorf("encoder crashed")
	}
	e.dests = append(e.dests, dest)
	return nil
}

func TestExportSegments(t *testing.T) {
	exp := &stubExporter{}
	outputDir := filepath.Join(t.TempDir(), "out")
	segments := []bandsaw.Segment{
		{StartSec: 0, EndSec: 95.5},
		{StartSec: 100, EndSec: 223},
		{StartSec: 230, EndSec: 355.2},
	}

	var progress []string
	paths, err := ExportSegments(context.Background(), exp, "/in/jam.m4a", segments,
		outputDir, datePtr(2026, 2, 14), OPUS,
		func(n, total int, name string) {
			progress = append(progress, fmt.Sprintf("%d/%d %s", n, total, name))
		})
	if err != nil {
		t.Fatalf("ExportSegments: %v", err)
	}

	wantNames := []string{
		"2026-02-14_1_00m00s-01m35s.ogg",
		"2026-02-14_2_01m40s-03m43s.ogg",
		"2026-02-14_3_03m50s-05m55s.ogg",
	}
	if len(paths) != len(wantNames) {
		t.Fatalf("got %d paths", len(paths))
	}
	for i, want := range wantNames {
		if paths[i] != filepath.Join(outputDir, want) {
			t.Errorf("path %d = %q, want %q", i, paths[i], filepath.Join(outputDir, want))
		}
	}
	if len(progress) != 3 || progress[0] != "1/3 "+wantNames[0] || progress[2] != "3/3 "+wantNames[2] {
		t.Errorf("progress = %v", progress)
	}

	info, err := os.Stat(outputDir)
	if err != nil || !info.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestExportSegmentsPartialFailure(t *testing.T) {
	exp := &stubExporter{failCall: 2}
	segments := []bandsaw.Segment{
		{StartSec: 0, EndSec: 60},
		{StartSec: 60, EndSec: 120},
		{StartSec: 120, EndSec: 180},
	}

	calls := 0
	paths, err := ExportSegments(context.Background(), exp, "/in/jam.m4a", segments,
		t.TempDir(), nil, DefaultFormat,
		func(int, int, string) { calls++ })
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(paths) != 1 {
		t.Errorf("got %d paths, want the one exported before the failure", len(paths))
	}
	if calls != 1 {
		t.Errorf("progress fired %d times", calls)
	}
}
