package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
)

// Metadata is what we can learn about a recording without decoding it.
type Metadata struct {
	Filename        string     `json:"filename"`
	DurationSeconds float64    `json:"duration_seconds"`
	SampleRate      int        `json:"sample_rate,omitempty"`
	Channels        int        `json:"channels,omitempty"`
	Bitrate         int        `json:"bitrate,omitempty"`
	FileSizeMB      float64    `json:"file_size_mb"`
	RecordingDate   *time.Time `json:"recording_date,omitempty"`
	Codec           string     `json:"codec,omitempty"`
}

func (m *Metadata) formatDuration() string {
	total := int(m.DurationSeconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

// Summary renders the human-readable block shown before processing starts.
func (m *Metadata) Summary() string {
	lines := []string{
		fmt.Sprintf("File:       %s", m.Filename),
		fmt.Sprintf("Duration:   %s", m.formatDuration()),
		fmt.Sprintf("Size:       %.1f MB", m.FileSizeMB),
	}
	if m.Codec != "" {
		lines = append(lines, fmt.Sprintf("Codec:      %s", m.Codec))
	}
	if m.SampleRate > 0 {
		lines = append(lines, fmt.Sprintf("Sample rate: %d Hz", m.SampleRate))
	}
	if m.Channels > 0 {
		lines = append(lines, fmt.Sprintf("Channels:   %d", m.Channels))
	}
	if m.Bitrate > 0 {
		lines = append(lines, fmt.Sprintf("Bitrate:    %d kbps", m.Bitrate/1000))
	}
	if m.RecordingDate != nil {
		lines = append(lines, fmt.Sprintf("Recorded:   %s", m.RecordingDate.Format("2006-01-02 15:04")))
	}
	return strings.Join(lines, "\n")
}

// Prober inspects a recording's container without decoding audio.
type Prober interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
}

// FFprobe reads technical metadata with ffprobe and the recording date
// from container tags.
type FFprobe struct{}

var _ Prober = (*FFprobe)(nil)

func NewFFprobe() *FFprobe { return &FFprobe{} }

type probeFormat struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

func (p *FFprobe) Probe(ctx context.Context, path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)
	raw, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	meta, err := parseProbeOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	meta.Filename = filepath.Base(path)
	meta.FileSizeMB = float64(info.Size()) / (1024 * 1024)

	if date := recordingDateFromTags(path); date != nil {
		meta.RecordingDate = date
	}
	return meta, nil
}

func parseProbeOutput(raw []byte) (*Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	meta := &Metadata{}
	meta.DurationSeconds, _ = strconv.ParseFloat(out.Format.Duration, 64)
	meta.Bitrate, _ = strconv.Atoi(out.Format.BitRate)
	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		meta.Codec = s.CodecName
		meta.Channels = s.Channels
		meta.SampleRate, _ = strconv.Atoi(s.SampleRate)
		break
	}
	for _, key := range []string{"creation_time", "date"} {
		if v, ok := out.Format.Tags[key]; ok {
			if t := parseRecordingDate(v); t != nil {
				meta.RecordingDate = t
				break
			}
		}
	}
	return meta, nil
}

// recordingDateFromTags reads the container tags directly. Voice Memos
// puts the capture time in the ©day atom, which ffprobe does not always
// surface.
func recordingDateFromTags(path string) *time.Time {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}
	for _, key := range []string{"\xa9day", "©day"} {
		v, ok := m.Raw()[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok {
			if t := parseRecordingDate(s); t != nil {
				return t
			}
		}
		break
	}
	return nil
}

func parseRecordingDate(s string) *time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return &t
		}
	}
	return nil
}
