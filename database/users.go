package database

import (
	"database/sql"
	"fmt"

	"github.com/mager/bandsaw/bandsaw"
)

func scanUser(row interface{ Scan(...any) error }) (*bandsaw.User, error) {
	var u bandsaw.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(email, passwordHash, name, role string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO users (email, password_hash, name, role) VALUES (?, ?, ?, ?)",
		email, passwordHash, name, role,
	)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// GetUser returns a user by id, or nil when missing.
func (db *DB) GetUser(id int64) (*bandsaw.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, password_hash, name, role, created_at FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByEmail returns a user by email, or nil when missing.
func (db *DB) GetUserByEmail(email string) (*bandsaw.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, password_hash, name, role, created_at FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (db *DB) ListUsers() ([]bandsaw.User, error) {
	rows, err := db.conn.Query(
		"SELECT id, email, password_hash, name, role, created_at FROM users ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []bandsaw.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (db *DB) UpdateUserPassword(id int64, passwordHash string) error {
	_, err := db.conn.Exec("UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	return err
}

func (db *DB) UpdateUserRole(id int64, role string) error {
	_, err := db.conn.Exec("UPDATE users SET role = ? WHERE id = ?", role, id)
	return err
}

func (db *DB) DeleteUser(id int64) error {
	_, err := db.conn.Exec("DELETE FROM users WHERE id = ?", id)
	return err
}

// --- Groups ---

func (db *DB) CreateGroup(name string) (int64, error) {
	res, err := db.conn.Exec("INSERT INTO groups (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("create group: %w", err)
	}
	return res.LastInsertId()
}

func (db *DB) ListGroups() ([]bandsaw.Group, error) {
	rows, err := db.conn.Query("SELECT id, name, created_at FROM groups ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []bandsaw.Group{}
	for rows.Next() {
		var g bandsaw.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroupByName returns a group, or nil when missing.
func (db *DB) GetGroupByName(name string) (*bandsaw.Group, error) {
	var g bandsaw.Group
	err := db.conn.QueryRow("SELECT id, name, created_at FROM groups WHERE name = ?", name).
		Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (db *DB) AssignUserToGroup(userID, groupID int64) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO user_groups (user_id, group_id) VALUES (?, ?)", userID, groupID)
	return err
}

func (db *DB) RemoveUserFromGroup(userID, groupID int64) error {
	_, err := db.conn.Exec(
		"DELETE FROM user_groups WHERE user_id = ? AND group_id = ?", userID, groupID)
	return err
}

// GroupsForUser returns the groups the user belongs to, ordered by name.
func (db *DB) GroupsForUser(userID int64) ([]bandsaw.Group, error) {
	rows, err := db.conn.Query(
		`SELECT g.id, g.name, g.created_at
         FROM groups g JOIN user_groups ug ON ug.group_id = g.id
         WHERE ug.user_id = ? ORDER BY g.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []bandsaw.Group{}
	for rows.Next() {
		var g bandsaw.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GroupIDsForUser returns just the ids, for session visibility filters.
func (db *DB) GroupIDsForUser(userID int64) ([]int64, error) {
	groups, err := db.GroupsForUser(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}
