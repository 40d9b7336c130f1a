//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../../mocks/mock_store.go -package=mocks

package store

import (
	"context"
	"errors"

	"github.com/eldtechnologies/batepapo/internal/models"
)

// ErrDuplicate is returned when a participant name is already taken.
var ErrDuplicate = errors.New("store: duplicate participant")

// DataStore defines the interface for persistent storage of participants and messages.
// Every backend (Mongo, Postgres, SQLite, Redis, Badger) implements it.
//
// Lookups return nil, nil when the record does not exist. Mutations that address a
// record by key return false when nothing matched.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Participant operations
	CreateParticipant(ctx context.Context, p models.Participant) error
	GetParticipant(ctx context.Context, name string) (*models.Participant, error)
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	TouchParticipant(ctx context.Context, name string, lastStatus int64) (bool, error)
	// RemoveParticipant deletes name only while its lastStatus still equals lastStatus.
	RemoveParticipant(ctx context.Context, name string, lastStatus int64) (bool, error)

	// Message operations
	AddMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	// ListMessages returns the messages visible to viewer in insertion order,
	// keeping only the last limit entries when limit > 0.
	ListMessages(ctx context.Context, viewer string, limit int) ([]models.Message, error)
	UpdateMessage(ctx context.Context, msg *models.Message) (bool, error)
	DeleteMessage(ctx context.Context, id string) (bool, error)
	CountMessages(ctx context.Context) (int64, error)
}
