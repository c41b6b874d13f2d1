package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mager/bandsaw/bandsaw"
)

const sessionSelect = `
    SELECT s.id, s.group_id, s.name, s.date, s.source_file, s.notes, s.created_at,
           COUNT(t.id) AS track_count,
           COUNT(t.song_id) AS tagged_count,
           COALESCE((SELECT GROUP_CONCAT(DISTINCT s2.name)
                     FROM tracks t2 JOIN songs s2 ON t2.song_id = s2.id
                     WHERE t2.session_id = s.id), '') AS song_names
    FROM sessions s
    LEFT JOIN tracks t ON t.session_id = s.id`

func scanSession(row interface{ Scan(...any) error }) (*bandsaw.Session, error) {
	var s bandsaw.Session
	var groupID sql.NullInt64
	var dateStr, notes sql.NullString
	err := row.Scan(&s.ID, &groupID, &s.Name, &dateStr, &s.SourceFile, &notes,
		&s.CreatedAt, &s.TrackCount, &s.TaggedCount, &s.SongNames)
	if err != nil {
		return nil, err
	}
	s.GroupID = groupID.Int64
	s.Date = dateStr.String
	s.Notes = notes.String
	return &s, nil
}

// CreateSession inserts a session, deriving its display name from the
// source filename. Returns the new id.
func (db *DB) CreateSession(groupID int64, sourceFile, date, notes string) (int64, error) {
	name := CleanSessionName(sourceFile)
	var gid any
	if groupID > 0 {
		gid = groupID
	}
	var d any
	if date != "" {
		d = date
	}
	res, err := db.conn.Exec(
		"INSERT INTO sessions (group_id, name, source_file, date, notes) VALUES (?, ?, ?, ?, ?)",
		gid, name, sourceFile, d, notes,
	)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return res.LastInsertId()
}

// GetSession returns the session with aggregates, or nil when missing.
func (db *DB) GetSession(id int64) (*bandsaw.Session, error) {
	row := db.conn.QueryRow(sessionSelect+" WHERE s.id = ? GROUP BY s.id", id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListSessions returns sessions newest-first. When groupIDs is non-nil the
// list is restricted to those groups; nil means no restriction.
func (db *DB) ListSessions(groupIDs []int64) ([]bandsaw.Session, error) {
	q := sessionSelect
	var args []any
	if groupIDs != nil {
		if len(groupIDs) == 0 {
			return []bandsaw.Session{}, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(groupIDs)), ",")
		q += " WHERE s.group_id IN (" + placeholders + ")"
		for _, id := range groupIDs {
			args = append(args, id)
		}
	}
	q += " GROUP BY s.id ORDER BY s.date DESC, s.id DESC"

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []bandsaw.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// FindSessionBySource returns the session whose source_file matches, or nil.
func (db *DB) FindSessionBySource(sourceFile string) (*bandsaw.Session, error) {
	row := db.conn.QueryRow(sessionSelect+" WHERE s.source_file = ? GROUP BY s.id", sourceFile)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// DeleteSession removes a session; its tracks cascade.
func (db *DB) DeleteSession(id int64) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

func (db *DB) UpdateSessionName(id int64, name string) error {
	_, err := db.conn.Exec("UPDATE sessions SET name = ? WHERE id = ?", name, id)
	return err
}

func (db *DB) UpdateSessionDate(id int64, date string) error {
	var d any
	if date != "" {
		d = date
	}
	_, err := db.conn.Exec("UPDATE sessions SET date = ? WHERE id = ?", d, id)
	return err
}

func (db *DB) UpdateSessionNotes(id int64, notes string) error {
	_, err := db.conn.Exec("UPDATE sessions SET notes = ? WHERE id = ?", notes, id)
	return err
}
