package database

import (
	"database/sql"
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/mager/bandsaw/bandsaw"
)

const trackSelect = `
    SELECT t.id, t.session_id, t.song_id, s.name AS song_name, t.track_number,
           t.start_sec, t.end_sec, t.duration_sec, t.fingerprint, t.audio_path,
           t.notes, t.created_at
    FROM tracks t
    LEFT JOIN songs s ON t.song_id = s.id`

func scanTrack(row interface{ Scan(...any) error }) (*bandsaw.Track, error) {
	var t bandsaw.Track
	var songID sql.NullInt64
	var songName, fingerprint, notes sql.NullString
	err := row.Scan(&t.ID, &t.SessionID, &songID, &songName, &t.TrackNumber,
		&t.StartSec, &t.EndSec, &t.DurationSec, &fingerprint, &t.AudioPath,
		&notes, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if songID.Valid {
		t.SongID = &songID.Int64
	}
	if songName.Valid {
		t.SongName = &songName.String
	}
	t.Fingerprint = fingerprint.String
	t.Notes = notes.String
	return &t, nil
}

// CreateTrack inserts a track row; duration is derived from the range.
func (db *DB) CreateTrack(sessionID int64, trackNumber int, startSec, endSec float64, audioPath, fingerprint string) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO tracks
         (session_id, track_number, start_sec, end_sec, duration_sec, fingerprint, audio_path)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, trackNumber, startSec, endSec, endSec-startSec, fingerprint, audioPath,
	)
	if err != nil {
		return 0, fmt.Errorf("create track: %w", err)
	}
	return res.LastInsertId()
}

// TracksForSession returns the session's tracks ordered by track number.
func (db *DB) TracksForSession(sessionID int64) ([]bandsaw.Track, error) {
	rows, err := db.conn.Query(trackSelect+" WHERE t.session_id = ? ORDER BY t.track_number", sessionID)
	if err != nil {
		return nil, fmt.Errorf("tracks for session: %w", err)
	}
	defer rows.Close()

	tracks := []bandsaw.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// GetTrack returns a single track, or nil when missing.
func (db *DB) GetTrack(id int64) (*bandsaw.Track, error) {
	row := db.conn.QueryRow(trackSelect+" WHERE t.id = ?", id)
	t, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (db *DB) DeleteTrack(id int64) error {
	_, err := db.conn.Exec("DELETE FROM tracks WHERE id = ?", id)
	return err
}

// TagTrack tags a track with a song, creating the song when it does not
// exist yet. Returns the song id.
func (db *DB) TagTrack(trackID int64, songName string) (int64, error) {
	songID, err := db.getOrCreateSong(songName)
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("UPDATE tracks SET song_id = ? WHERE id = ?", songID, trackID)
	return songID, err
}

func (db *DB) UntagTrack(trackID int64) error {
	_, err := db.conn.Exec("UPDATE tracks SET song_id = NULL WHERE id = ?", trackID)
	return err
}

// SetTrackSong points a track at an existing song id.
func (db *DB) SetTrackSong(trackID, songID int64) error {
	_, err := db.conn.Exec("UPDATE tracks SET song_id = ? WHERE id = ?", songID, trackID)
	return err
}

func (db *DB) UpdateTrackNotes(trackID int64, notes string) error {
	_, err := db.conn.Exec("UPDATE tracks SET notes = ? WHERE id = ?", notes, trackID)
	return err
}

// trackColumns is the set UpdateTrack accepts.
var trackColumns = map[string]bool{
	"track_number": true,
	"start_sec":    true,
	"end_sec":      true,
	"duration_sec": true,
	"audio_path":   true,
	"fingerprint":  true,
	"song_id":      true,
	"notes":        true,
}

// UpdateTrack updates the given columns on a track. Unknown columns are
// rejected so callers cannot smuggle arbitrary SQL.
func (db *DB) UpdateTrack(id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	cols := maps.Keys(updates)
	sort.Strings(cols)

	set := ""
	args := make([]any, 0, len(updates)+1)
	for _, col := range cols {
		if !trackColumns[col] {
			return fmt.Errorf("update track: column %q not allowed", col)
		}
		if set != "" {
			set += ", "
		}
		set += col + " = ?"
		args = append(args, updates[col])
	}
	args = append(args, id)
	_, err := db.conn.Exec("UPDATE tracks SET "+set+" WHERE id = ?", args...)
	return err
}
