package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/mager/bandsaw/bandsaw"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
)

// WriteJSON writes v with the given status. Encoding failures are not
// recoverable once the header is out, so they are dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes the error body shape every client parses.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteDomainError maps domain errors to their HTTP status: validation
// to 400, missing entities to 404, everything else to 500.
func WriteDomainError(log *zap.SugaredLogger, w http.ResponseWriter, err error) {
	var valErr *bandsaw.ValidationError
	var nfErr *bandsaw.NotFoundError
	var procErr *bandsaw.ProcessingError

	switch {
	case errors.As(err, &valErr):
		WriteError(w, http.StatusBadRequest, valErr.Msg)
	case errors.As(err, &nfErr):
		WriteError(w, http.StatusNotFound, nfErr.Msg)
	case errors.As(err, &procErr):
		log.Errorw("Processing failed", "op", procErr.Op, "error", procErr.Err)
		WriteError(w, http.StatusInternalServerError, procErr.Error())
	default:
		log.Errorw("Request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// SplitSongNames splits the GROUP_CONCAT aggregate into names.
func SplitSongNames(s string) []string {
	names := []string{}

	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}

	return names
}

func JoinGroupNames(names []string) string {
	if len(names) == 0 {
		return "(no groups)"
	}

	return strings.Join(names, ", ")
}

// RankByCount returns the keys of counts ranked by their number of occurrences,
// ties broken alphabetically
func RankByCount(counts map[string]int) []string {
	// Sort the keys by frequency (merging declaration and assignment)
	var sorted []string
	sorted = maps.Keys(counts)
	sort.Slice(sorted, func(i, j int) bool {
		if counts[sorted[i]] != counts[sorted[j]] {
			return counts[sorted[i]] > counts[sorted[j]]
		}
		return sorted[i] < sorted[j]
	})

	return sorted
}
