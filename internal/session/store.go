package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    current_iteration_id TEXT,
    model TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS iterations (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    parent_id TEXT,
    operation TEXT NOT NULL,
    prompt TEXT NOT NULL,
    response_text TEXT,
    model TEXT NOT NULL,
    image_path TEXT,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_iterations_session_id ON iterations(session_id);
CREATE INDEX IF NOT EXISTS idx_iterations_parent_id ON iterations(parent_id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// Store persists sessions and their iterations in sqlite.
type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(filepath.Join(dir, "sessions.db"))
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// DataDir is where the database and per-session image files live.
func DataDir() (string, error) {
	if testDir := os.Getenv("GEMIMG_DATA_DIR"); testDir != "" {
		return testDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gemimg"), nil
}

func ImageDir(sessionID string) (string, error) {
	baseDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, "images", sessionID), nil
}

func EnsureImageDir(sessionID string) (string, error) {
	dir, err := ImageDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, created_at, updated_at, current_iteration_id, model)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.CreatedAt, sess.UpdatedAt, sess.CurrentIterationID, sess.Model)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, current_iteration_id, model
		 FROM sessions WHERE id = ?`, id)

	sess := &Session{}
	var name, currentIterID sql.NullString
	err := row.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &currentIterID, &sess.Model)
	if err != nil {
		return nil, err
	}
	sess.Name = name.String
	sess.CurrentIterationID = currentIterID.String
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET name = ?, updated_at = ?, current_iteration_id = ?, model = ?
		 WHERE id = ?`,
		sess.Name, sess.UpdatedAt, sess.CurrentIterationID, sess.Model, sess.ID)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at, current_iteration_id, model
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var name, currentIterID sql.NullString
		if err := rows.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &currentIterID, &sess.Model); err != nil {
			return nil, err
		}
		sess.Name = name.String
		sess.CurrentIterationID = currentIterID.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) CreateIteration(ctx context.Context, iter *Iteration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO iterations (id, session_id, parent_id, operation, prompt, response_text, model, image_path, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iter.ID, iter.SessionID, nullString(iter.ParentID), iter.Operation, iter.Prompt,
		nullString(iter.ResponseText), iter.Model, nullString(iter.ImagePath), iter.Timestamp)
	return err
}

func (s *Store) GetIteration(ctx context.Context, id string) (*Iteration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, parent_id, operation, prompt, response_text, model, image_path, timestamp
		 FROM iterations WHERE id = ?`, id)

	iter := &Iteration{}
	var parentID, responseText, imagePath sql.NullString
	err := row.Scan(&iter.ID, &iter.SessionID, &parentID, &iter.Operation, &iter.Prompt,
		&responseText, &iter.Model, &imagePath, &iter.Timestamp)
	if err != nil {
		return nil, err
	}
	iter.ParentID = parentID.String
	iter.ResponseText = responseText.String
	iter.ImagePath = imagePath.String
	return iter, nil
}

func (s *Store) ListIterations(ctx context.Context, sessionID string) ([]*Iteration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, parent_id, operation, prompt, response_text, model, image_path, timestamp
		 FROM iterations WHERE session_id = ? ORDER BY timestamp ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var iterations []*Iteration
	for rows.Next() {
		iter := &Iteration{}
		var parentID, responseText, imagePath sql.NullString
		if err := rows.Scan(&iter.ID, &iter.SessionID, &parentID, &iter.Operation, &iter.Prompt,
			&responseText, &iter.Model, &imagePath, &iter.Timestamp); err != nil {
			return nil, err
		}
		iter.ParentID = parentID.String
		iter.ResponseText = responseText.String
		iter.ImagePath = imagePath.String
		iterations = append(iterations, iter)
	}
	return iterations, rows.Err()
}

func (s *Store) CountIterations(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM iterations WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
