// Package output owns exported-track naming and encode formats.
package output

import (
	"strings"

	"github.com/mager/bandsaw/bandsaw"
)

// AudioFormat describes an encode target for exported tracks.
type AudioFormat struct {
	Extension string
	Codec     string
	Bitrate   string // empty for lossless codecs
}

var (
	OPUS = AudioFormat{Extension: ".ogg", Codec: "libopus", Bitrate: "192k"}
	AAC  = AudioFormat{Extension: ".m4a", Codec: "aac", Bitrate: "192k"}
	WAV  = AudioFormat{Extension: ".wav", Codec: "pcm_s16le"}
)

var DefaultFormat = AAC

// FormatByName resolves a user-supplied format name. The empty string
// selects the default.
func FormatByName(name string) (AudioFormat, error) {
	switch strings.ToLower(name) {
	case "", "aac":
		return AAC, nil
	case "opus":
		return OPUS, nil
	case "wav":
		return WAV, nil
	}
	return AudioFormat{}, bandsaw.Validationf("Unknown audio format '%s'", name)
}
