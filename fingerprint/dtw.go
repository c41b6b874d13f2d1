package fingerprint

import (
	"math"
	"regexp"

	"github.com/mager/bandsaw/bandsaw"
)

// DefaultMatchThreshold is deliberately strict: only high-confidence
// matches auto-tag a track.
const DefaultMatchThreshold = 0.04

func normalizedRows(seq [][]float64) [][]float64 {
	out := make([][]float64, len(seq))
	for i, row := range seq {
		c := make([]float64, len(row))
		copy(c, row)
		normalizeRow(c)
		out[i] = c
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// DTWDistance computes the dynamic-time-warping distance between two
// chroma sequences using cosine distance as the frame cost, normalized
// by the combined length. Empty sequences are infinitely far apart.
func DTWDistance(a, b [][]float64) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	an := normalizedRows(a)
	bn := normalizedRows(b)

	prev := make([]float64, m+1)
	curr := make([]float64, m+1)
	for j := range prev {
		prev[j] = math.Inf(1)
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		curr[0] = math.Inf(1)
		for j := 1; j <= m; j++ {
			cost := 1 - dot(an[i-1], bn[j-1])
			best := math.Min(prev[j], math.Min(curr[j-1], prev[j-1]))
			curr[j] = cost + best
		}
		prev, curr = curr, prev
	}
	return prev[m] / float64(n+m)
}

var datePrefixRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// CleanReferenceName strips a leading date from a reference filename
// stem, so "2023-10-25-fat-cat" and "fat-cat" name the same song.
func CleanReferenceName(name string) string {
	return datePrefixRE.ReplaceAllString(name, "")
}

// Match summarizes the query chromagram and returns the closest
// reference within threshold, or nil when nothing is close enough.
// Distance ties keep the earliest entry.
func Match(query [][]float64, refs []Entry, threshold float64) *bandsaw.MatchResult {
	summary := Summarize(TrimEdges(query))

	bestDist := math.Inf(1)
	bestName := ""
	for _, ref := range refs {
		dist := DTWDistance(summary, ref.Summary)
		if dist < bestDist {
			bestDist = dist
			bestName = ref.Name
		}
	}

	if bestName != "" && bestDist <= threshold {
		return &bandsaw.MatchResult{
			Name:       bestName,
			Similarity: 1 - bestDist,
			Distance:   bestDist,
		}
	}
	return nil
}
