// Package fingerprint identifies songs by their chord progression: a
// chromagram summarized into a fixed number of time bins, hashed for
// exact lookup and compared with DTW for fuzzy matching.
package fingerprint

import (
	"context"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mager/bandsaw/audio"
)

const (
	// SampleRate is low because chroma only needs pitch content.
	SampleRate = 11025

	hopSeconds = 0.5
	nFFT       = 8192
	nChroma    = 12

	// Band limits: below 60 Hz is rumble, above 4200 Hz is mostly
	// cymbals and noise.
	minFreqHz = 60
	maxFreqHz = 4200

	a4Hz = 440.0
)

func hanning(m int) []float64 {
	w := make([]float64, m)
	for n := range w {
		w[n] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/float64(m-1))
	}
	return w
}

// chromaMapping assigns each FFT bin to a pitch class, or -1 for bins
// outside the analysis band.
func chromaMapping() []int {
	mapping := make([]int, nFFT/2+1)
	for i := range mapping {
		f := float64(i) * SampleRate / nFFT
		if f < minFreqHz || f > maxFreqHz {
			mapping[i] = -1
			continue
		}
		k := int(math.Round(12 * math.Log2(f/a4Hz)))
		mapping[i] = ((k % 12) + 12) % 12
	}
	return mapping
}

func normalizeRow(row []float64) {
	var sumSq float64
	for _, v := range row {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range row {
		row[i] /= norm
	}
}

// computeChromagram windows the samples, takes the power spectrum of
// each frame, and folds it into 12 pitch classes. Each frame is
// normalized to unit length so loudness does not matter.
func computeChromagram(samples []float64) [][]float64 {
	hop := int(hopSeconds * SampleRate)
	fft := fourier.NewFFT(nFFT)
	window := hanning(nFFT)
	mapping := chromaMapping()

	buf := make([]float64, nFFT)
	coeffs := make([]complex128, nFFT/2+1)

	frames := [][]float64{}
	for start := 0; start < len(samples)-nFFT; start += hop {
		for i := 0; i < nFFT; i++ {
			buf[i] = samples[start+i] * window[i]
		}
		coeffs = fft.Coefficients(coeffs, buf)

		frame := make([]float64, nChroma)
		for i, c := range coeffs {
			bin := mapping[i]
			if bin < 0 {
				continue
			}
			frame[bin] += real(c)*real(c) + imag(c)*imag(c)
		}
		normalizeRow(frame)
		frames = append(frames, frame)
	}
	return frames
}

// ChromagramForFile decodes a file (or a window of it) and computes its
// chromagram. Input shorter than one FFT frame yields an empty
// chromagram.
func ChromagramForFile(ctx context.Context, dec audio.Decoder, path string, startSec, durationSec float64) ([][]float64, error) {
	pcm, err := dec.Decode(ctx, path, SampleRate, startSec, durationSec)
	if err != nil {
		return nil, err
	}
	samples := make([]float64, len(pcm))
	for i, s := range pcm {
		samples[i] = float64(s) / 32768.0
	}
	return computeChromagram(samples), nil
}
