package store

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/batepapo/internal/models"
)

// uniqueViolation is the SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS participants (
			name        TEXT PRIMARY KEY,
			last_status BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq       BIGSERIAL PRIMARY KEY,
			id        UUID UNIQUE NOT NULL,
			from_name TEXT NOT NULL,
			to_name   TEXT NOT NULL,
			text      TEXT NOT NULL,
			type      TEXT NOT NULL,
			time      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_name);
		CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_name);
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateParticipant inserts a participant, failing with ErrDuplicate on a taken name.
func (s *PostgresStore) CreateParticipant(ctx context.Context, p models.Participant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO participants (name, last_status) VALUES ($1, $2)
	`, p.Name, p.LastStatus)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetParticipant retrieves a participant by name.
func (s *PostgresStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	p := &models.Participant{}
	err := s.pool.QueryRow(ctx, `
		SELECT name, last_status FROM participants WHERE name = $1
	`, name).Scan(&p.Name, &p.LastStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListParticipants retrieves all participants ordered by name.
func (s *PostgresStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	rows, err := s.pool.Query(ctx, `
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
func (s *PostgresStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE participants SET last_status = $2 WHERE name = $1
	`, name, lastStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveParticipant deletes a participant whose heartbeat has not moved.
func (s *PostgresStore) RemoveParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM participants WHERE name = $1 AND last_status = $2
	`, name, lastStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddMessage stores a message, assigning a UUIDv7 id.
func (s *PostgresStore) AddMessage(ctx context.Context, msg *models.Message) error {
	id := NewUUIDv7()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, from_name, to_name, text, type, time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, msg.From, msg.To, msg.Text, string(msg.Type), msg.Time)
	if err != nil {
		return err
	}
	msg.ID = id.String()
	return nil
}

// GetMessage retrieves a message by id.
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	uid, ok := parseMessageID(id)
	if !ok {
		return nil, nil
	}

	msg, err := scanMessage(s.pool.QueryRow(ctx, `
		SELECT id::text, from_name, to_name, text, type, time
		FROM messages WHERE id = $1
	`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListMessages retrieves the messages visible to viewer.
func (s *PostgresStore) ListMessages(ctx context.Context, viewer string, limit int) ([]models.Message, error) {
	// LIMIT NULL is LIMIT ALL
	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, from_name, to_name, text, type, time
		FROM messages
		WHERE from_name = $1 OR to_name = $1 OR to_name = $2
		ORDER BY seq DESC
		LIMIT $3
	`, viewer, models.Broadcast, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
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
func (s *PostgresStore) UpdateMessage(ctx context.Context, msg *models.Message) (bool, error) {
	uid, ok := parseMessageID(msg.ID)
	if !ok {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET to_name = $2, text = $3, type = $4 WHERE id = $1
	`, uid, msg.To, msg.Text, string(msg.Type))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteMessage removes a message permanently.
func (s *PostgresStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	uid, ok := parseMessageID(id)
	if !ok {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, uid)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountMessages returns the number of stored messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

// parseMessageID reports false for ids that are not UUIDs; they match no row.
func parseMessageID(id string) (uuid.UUID, bool) {
	uid, err := uuid.Parse(id)
	return uid, err == nil
}

func scanMessage(row pgx.Row) (models.Message, error) {
	var msg models.Message
	var typ string
	err := row.Scan(&msg.ID, &msg.From, &msg.To, &msg.Text, &typ, &msg.Time)
	msg.Type = models.MessageType(typ)
	return msg, err
}
