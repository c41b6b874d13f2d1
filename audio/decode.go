// Package audio shells out to ffmpeg and ffprobe for decoding, encoding,
// and inspection. Nothing here parses containers itself.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

const decodeTimeout = 10 * time.Minute

// Decoder yields mono 16-bit PCM at a requested sample rate. startSec and
// durationSec are ignored when <= 0.
type Decoder interface {
	Decode(ctx context.Context, path string, sampleRate int, startSec, durationSec float64) ([]int16, error)
}

// FFmpegDecoder pipes s16le PCM out of ffmpeg.
type FFmpegDecoder struct{}

var _ Decoder = (*FFmpegDecoder)(nil)

func NewFFmpegDecoder() *FFmpegDecoder { return &FFmpegDecoder{} }

func decodeArgs(path string, sampleRate int, startSec, durationSec float64) []string {
	args := []string{"-hide_banner", "-v", "error"}
	if startSec > 0 {
		args = append(args, "-ss", formatSeconds(startSec))
	}
	args = append(args, "-i", path)
	if durationSec > 0 {
		args = append(args, "-t", formatSeconds(durationSec))
	}
	args = append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	)
	return args
}

func (d *FFmpegDecoder) Decode(ctx context.Context, path string, sampleRate int, startSec, durationSec float64) ([]int16, error) {
	ctx, cancel := context.WithTimeout(ctx, decodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", decodeArgs(path, sampleRate, startSec, durationSec)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, lastLine(stderr.Bytes()))
	}

	raw := stdout.Bytes()
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func lastLine(b []byte) string {
	b = bytes.TrimRight(b, "\n")
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}
