package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/mager/bandsaw/audio"
)

const (
	// SummaryBins is the fixed number of time bins a song is reduced
	// to, so songs compare by proportional structure regardless of
	// tempo or duration.
	SummaryBins = 32

	// edgeTrimPercent cuts noodling and count-ins at both ends.
	edgeTrimPercent = 0.10
)

// TrimEdges drops a fraction of frames from each end. Very short
// chromagrams pass through untouched.
func TrimEdges(ch [][]float64) [][]float64 {
	n := len(ch)
	if n < 10 {
		return ch
	}
	trim := int(float64(n) * edgeTrimPercent)
	return ch[trim : n-trim]
}

// Summarize averages the chromagram into SummaryBins time bins and
// re-normalizes each bin. Chromagrams with fewer frames than bins are
// padded by repeating the final frame; an empty chromagram summarizes
// to all zeros.
func Summarize(ch [][]float64) [][]float64 {
	out := make([][]float64, SummaryBins)
	if len(ch) == 0 {
		for i := range out {
			out[i] = make([]float64, nChroma)
		}
		return out
	}

	frames := ch
	if len(frames) < SummaryBins {
		padded := make([][]float64, 0, SummaryBins)
		padded = append(padded, frames...)
		last := frames[len(frames)-1]
		for len(padded) < SummaryBins {
			padded = append(padded, last)
		}
		frames = padded
	}

	binSize := float64(len(frames)) / SummaryBins
	for i := 0; i < SummaryBins; i++ {
		start := int(float64(i) * binSize)
		end := int(float64(i+1) * binSize)
		row := make([]float64, nChroma)
		for _, fr := range frames[start:end] {
			for j, v := range fr {
				row[j] += v
			}
		}
		count := float64(end - start)
		for j := range row {
			row[j] /= count
		}
		normalizeRow(row)
		out[i] = row
	}
	return out
}

// FromChromagram hashes the summarized chord progression. Values are
// quantized to two decimals first so numerically-close runs of the same
// song collide. Empty chromagrams produce the empty string.
func FromChromagram(ch [][]float64) string {
	if len(ch) == 0 {
		return ""
	}
	summary := Summarize(TrimEdges(ch))

	buf := make([]byte, 0, SummaryBins*nChroma*8)
	var word [8]byte
	for _, row := range summary {
		for _, v := range row {
			q := math.RoundToEven(v*100) / 100
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(q))
			buf = append(buf, word[:]...)
		}
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])[:16]
}

// ForFile is the one-shot path: decode, chromagram, hash.
func ForFile(ctx context.Context, dec audio.Decoder, path string, startSec, durationSec float64) (string, error) {
	ch, err := ChromagramForFile(ctx, dec, path, startSec, durationSec)
	if err != nil {
		return "", err
	}
	return FromChromagram(ch), nil
}
