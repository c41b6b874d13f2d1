package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/fx"

	"github.com/mager/bandsaw/output"
)

// FFmpegExporter re-encodes a source range into a standalone file.
type FFmpegExporter struct{}

var _ output.Exporter = (*FFmpegExporter)(nil)

func NewFFmpegExporter() *FFmpegExporter { return &FFmpegExporter{} }

func exportArgs(source, dest string, startSec, endSec float64, f output.AudioFormat) []string {
	args := []string{
		"-hide_banner", "-v", "error", "-y",
		"-ss", formatSeconds(startSec),
		"-i", source,
		"-t", formatSeconds(endSec - startSec),
		"-c:a", f.Codec,
	}
	if f.Bitrate != "" {
		args = append(args, "-b:a", f.Bitrate)
	}
	return append(args, dest)
}

func (e *FFmpegExporter) Export(ctx context.Context, source, dest string, startSec, endSec float64, f output.AudioFormat) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", exportArgs(source, dest, startSec, endSec, f)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg export %s: %w: %s", dest, err, lastLine(stderr.Bytes()))
	}
	return nil
}

var Options = fx.Options(
	fx.Provide(func() Decoder { return NewFFmpegDecoder() }),
	fx.Provide(fx.Annotate(NewFFmpegExporter, fx.As(new(output.Exporter)))),
	fx.Provide(func() Prober { return NewFFprobe() }),
)
