package database

import (
	"database/sql"
	"fmt"

	"github.com/mager/bandsaw/bandsaw"
)

const songSelect = `
    SELECT s.id, s.name, s.chart, s.lyrics, s.notes,
           COUNT(t.id) AS take_count,
           MIN(ses.date) AS first_date, MAX(ses.date) AS last_date
    FROM songs s
    LEFT JOIN tracks t ON t.song_id = s.id
    LEFT JOIN sessions ses ON t.session_id = ses.id`

func scanSong(row interface{ Scan(...any) error }) (*bandsaw.Song, error) {
	var s bandsaw.Song
	var first, last sql.NullString
	err := row.Scan(&s.ID, &s.Name, &s.Chart, &s.Lyrics, &s.Notes, &s.TakeCount, &first, &last)
	if err != nil {
		return nil, err
	}
	if first.Valid {
		s.FirstDate = &first.String
	}
	if last.Valid {
		s.LastDate = &last.String
	}
	return &s, nil
}

func (db *DB) getOrCreateSong(name string) (int64, error) {
	var id int64
	err := db.conn.QueryRow("SELECT id FROM songs WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := db.conn.Exec("INSERT INTO songs (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create song: %w", err)
	}
	return res.LastInsertId()
}

// ListSongs returns all songs with take counts, ordered by name.
func (db *DB) ListSongs() ([]bandsaw.Song, error) {
	rows, err := db.conn.Query(songSelect + " GROUP BY s.id ORDER BY s.name")
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	songs := []bandsaw.Song{}
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *s)
	}
	return songs, rows.Err()
}

// GetSong returns one song, or nil when missing.
func (db *DB) GetSong(id int64) (*bandsaw.Song, error) {
	row := db.conn.QueryRow(songSelect+" WHERE s.id = ? GROUP BY s.id", id)
	s, err := scanSong(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (db *DB) UpdateSongDetails(id int64, chart, lyrics, notes string) error {
	_, err := db.conn.Exec(
		"UPDATE songs SET chart = ?, lyrics = ?, notes = ? WHERE id = ?",
		chart, lyrics, notes, id,
	)
	return err
}

// TracksForSong returns every take tagged with the song, newest session
// first.
func (db *DB) TracksForSong(songID int64) ([]bandsaw.SongTake, error) {
	rows, err := db.conn.Query(
		`SELECT t.id, t.session_id, t.track_number,
                t.start_sec, t.end_sec, t.duration_sec,
                t.audio_path, t.notes,
                COALESCE(ses.date, '') AS session_date,
                ses.name AS session_name, ses.source_file
         FROM tracks t
         JOIN sessions ses ON t.session_id = ses.id
         WHERE t.song_id = ?
         ORDER BY ses.date DESC, t.track_number`,
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("tracks for song: %w", err)
	}
	defer rows.Close()

	takes := []bandsaw.SongTake{}
	for rows.Next() {
		var tk bandsaw.SongTake
		var notes sql.NullString
		err := rows.Scan(&tk.ID, &tk.SessionID, &tk.TrackNumber,
			&tk.StartSec, &tk.EndSec, &tk.DurationSec,
			&tk.AudioPath, &notes, &tk.SessionDate, &tk.SessionName, &tk.SourceFile)
		if err != nil {
			return nil, err
		}
		tk.Notes = notes.String
		takes = append(takes, tk)
	}
	return takes, rows.Err()
}

// DeleteSong removes a song; tracks referencing it fall back to untagged.
func (db *DB) DeleteSong(id int64) error {
	_, err := db.conn.Exec("DELETE FROM songs WHERE id = ?", id)
	return err
}

// RenameSong renames a song, rejecting names already taken.
func (db *DB) RenameSong(id int64, newName string) error {
	var existing int64
	err := db.conn.QueryRow("SELECT id FROM songs WHERE name = ? AND id != ?", newName, id).Scan(&existing)
	if err == nil {
		return bandsaw.Validationf("Song '%s' already exists", newName)
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = db.conn.Exec("UPDATE songs SET name = ? WHERE id = ?", newName, id)
	return err
}
