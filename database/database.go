package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mager/bandsaw/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'readonly',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS user_groups (
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    PRIMARY KEY (user_id, group_id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id INTEGER REFERENCES groups(id),
    name TEXT NOT NULL DEFAULT '',
    date TEXT,
    source_file TEXT NOT NULL,
    notes TEXT DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS songs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    chart TEXT NOT NULL DEFAULT '',
    lyrics TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tracks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    song_id INTEGER REFERENCES songs(id) ON DELETE SET NULL,
    track_number INTEGER NOT NULL,
    start_sec REAL NOT NULL,
    end_sec REAL NOT NULL,
    duration_sec REAL NOT NULL,
    fingerprint TEXT DEFAULT '',
    audio_path TEXT NOT NULL,
    notes TEXT DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// DB wraps the sqlite handle with the application's queries.
type DB struct {
	conn *sql.DB
	log  *zap.SugaredLogger
}

// Open opens (creating if needed) the sqlite database at path and applies
// the schema and migrations.
func Open(path string, log *zap.SugaredLogger) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps foreign_keys pinned and makes :memory:
	// databases usable from tests.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, log: log}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// ProvideDatabase provides the sqlite-backed DB.
func ProvideDatabase(logger *zap.SugaredLogger, cfg config.Config) (*DB, error) {
	db, err := Open(cfg.DBPath, logger)
	if err != nil {
		logger.Errorw("Failed to open database", "path", cfg.DBPath, "error", err)
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) initSchema() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return db.migrate()
}

// migrate applies additive changes to databases created by older builds.
// Duplicate-column errors mean the column already exists and are ignored.
func (db *DB) migrate() error {
	alters := []string{
		"ALTER TABLE sessions ADD COLUMN name TEXT NOT NULL DEFAULT ''",
		"ALTER TABLE sessions ADD COLUMN group_id INTEGER REFERENCES groups(id)",
		"ALTER TABLE songs ADD COLUMN chart TEXT NOT NULL DEFAULT ''",
		"ALTER TABLE songs ADD COLUMN lyrics TEXT NOT NULL DEFAULT ''",
		"ALTER TABLE songs ADD COLUMN notes TEXT NOT NULL DEFAULT ''",
	}
	for _, stmt := range alters {
		if _, err := db.conn.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Backfill display names for sessions created before the name column.
	rows, err := db.conn.Query("SELECT id, source_file FROM sessions WHERE name = ''")
	if err != nil {
		return err
	}
	type backfill struct {
		id     int64
		source string
	}
	var pending []backfill
	for rows.Next() {
		var b backfill
		if err := rows.Scan(&b.id, &b.source); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, b)
	}
	rows.Close()
	for _, b := range pending {
		name := CleanSessionName(b.source)
		if name == "" {
			continue
		}
		if _, err := db.conn.Exec("UPDATE sessions SET name = ? WHERE id = ?", name, b.id); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops all tables and recreates the schema.
func (db *DB) Reset() error {
	_, err := db.conn.Exec(`
        DROP TABLE IF EXISTS tracks;
        DROP TABLE IF EXISTS songs;
        DROP TABLE IF EXISTS sessions;
        DROP TABLE IF EXISTS user_groups;
        DROP TABLE IF EXISTS users;
        DROP TABLE IF EXISTS groups;
    `)
	if err != nil {
		return err
	}
	return db.initSchema()
}

var (
	isoDatePattern   = regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`)
	shortDatePattern = regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`)
	trailingDash     = regexp.MustCompile(`\s*-\s*$`)
	leadingDash      = regexp.MustCompile(`^\s*-\s*`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)
)

// CleanSessionName derives a display name from a source filename, stripping
// the extension and date patterns like 2026-02-03 or 2-3-26.
func CleanSessionName(sourceFile string) string {
	name := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	name = isoDatePattern.ReplaceAllString(name, "")
	name = shortDatePattern.ReplaceAllString(name, "")
	name = trailingDash.ReplaceAllString(name, "")
	name = leadingDash.ReplaceAllString(name, "")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// SessionDateFromFilename extracts a date embedded in a source filename,
// like "Slow Burners 1-22-26.m4a", normalized to YYYY-MM-DD. Returns ""
// when no date pattern parses. Matches the patterns CleanSessionName
// strips, so the derived name and date stay consistent.
func SessionDateFromFilename(sourceFile string) string {
	stem := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	if m := isoDatePattern.FindString(stem); m != "" {
		if t, err := time.Parse("2006-1-2", m); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := shortDatePattern.FindString(stem); m != "" {
		for _, layout := range []string{"1-2-2006", "1-2-06"} {
			if t, err := time.Parse(layout, m); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return ""
}

var Options = ProvideDatabase
