package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/batepapo/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/batepapo.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/batepapo.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS participants (
		name TEXT PRIMARY KEY,
		last_status INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		from_name TEXT NOT NULL,
		to_name TEXT NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		time TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_name);
	CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_name);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateParticipant inserts a participant, failing with ErrDuplicate on a taken name.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p models.Participant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (name, last_status) VALUES (?, ?)
	`, p.Name, p.LastStatus)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetParticipant retrieves a participant by name.
func (s *SQLiteStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	p := &models.Participant{}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, last_status FROM participants WHERE name = ?
	`, name).Scan(&p.Name, &p.LastStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListParticipants retrieves all participants ordered by name.
func (s *SQLiteStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, last_status FROM participants ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.Name, &p.LastStatus); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// TouchParticipant replaces the heartbeat timestamp.
func (s *SQLiteStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE participants SET last_status = ? WHERE name = ?
	`, lastStatus, name)
	return affected(result, err)
}

// RemoveParticipant deletes a participant whose heartbeat has not moved.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM participants WHERE name = ? AND last_status = ?
	`, name, lastStatus)
	return affected(result, err)
}

// AddMessage stores a message, assigning a ULID.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg *models.Message) error {
	id := newULID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_name, to_name, text, type, time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, msg.From, msg.To, msg.Text, string(msg.Type), msg.Time)
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// GetMessage retrieves a message by id.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, from_name, to_name, text, type, time FROM messages WHERE id = ?
	`, id).Scan(&msg.ID, &msg.From, &msg.To, &msg.Text, &msg.Type, &msg.Time)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return msg, nil
}

// ListMessages retrieves the messages visible to viewer.
func (s *SQLiteStore) ListMessages(ctx context.Context, viewer string, limit int) ([]models.Message, error) {
	// LIMIT -1 is unbounded in SQLite
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_name, to_name, text, type, time
		FROM messages
		WHERE from_name = ?1 OR to_name = ?1 OR to_name = ?2
		ORDER BY seq DESC
		LIMIT ?3
	`, viewer, models.Broadcast, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.From, &msg.To, &msg.Text, &msg.Type, &msg.Time); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

// UpdateMessage replaces recipient, text and type of an existing message.
func (s *SQLiteStore) UpdateMessage(ctx context.Context, msg *models.Message) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE messages SET to_name = ?, text = ?, type = ? WHERE id = ?
	`, msg.To, msg.Text, string(msg.Type), msg.ID)
	return affected(result, err)
}

// DeleteMessage removes a message permanently.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	return affected(result, err)
}

// CountMessages returns the number of stored messages.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func affected(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
