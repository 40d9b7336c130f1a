package store

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/eldtechnologies/batepapo/internal/models"
)

const (
	participantPrefix = "participant:"
	messagePrefix     = "message:"
)

var errBadgerClosed = errors.New("badger: database is closed")

// BadgerStore keeps participants and messages in an embedded BadgerDB.
//
// Keys are "participant:{name}" and "message:{ulid}". ULIDs are monotonic, so a
// prefix scan over messages yields insertion order.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a BadgerDB at path. An empty path opens an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func participantKey(name string) []byte {
	return []byte(participantPrefix + name)
}

func messageKey(id string) []byte {
	return []byte(messagePrefix + id)
}

// Close closes the database.
func (s *BadgerStore) Close() {
	_ = s.db.Close()
}

// Ping reports whether the database is still open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errBadgerClosed
	}
	return ctx.Err()
}

// CreateParticipant inserts a participant, failing with ErrDuplicate on a taken name.
func (s *BadgerStore) CreateParticipant(ctx context.Context, p models.Participant) error {
	data, err := msgpack.Marshal(p)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := participantKey(p.Name)
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	// A conflicting commit means another transaction wrote the same name first.
	if errors.Is(err, badger.ErrConflict) {
		return ErrDuplicate
	}
	return err
}

// GetParticipant retrieves a participant by name.
func (s *BadgerStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	var p *models.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getParticipant(txn, name)
		p = found
		return err
	})
	return p, err
}

// ListParticipants retrieves all participants ordered by name.
func (s *BadgerStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	participants := []models.Participant{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(participantPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p models.Participant
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &p)
			})
			if err != nil {
				return err
			}
			participants = append(participants, p)
		}
		return nil
	})
	return participants, err
}

// TouchParticipant replaces the heartbeat timestamp.
func (s *BadgerStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	var touched bool
	err := s.db.Update(func(txn *badger.Txn) error {
		p, err := getParticipant(txn, name)
		if err != nil || p == nil {
			return err
		}
		p.LastStatus = lastStatus
		data, err := msgpack.Marshal(p)
		if err != nil {
			return err
		}
		touched = true
		return txn.Set(participantKey(name), data)
	})
	return touched, err
}

// RemoveParticipant deletes a participant whose heartbeat has not moved.
func (s *BadgerStore) RemoveParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	var removed bool
	err := s.db.Update(func(txn *badger.Txn) error {
		p, err := getParticipant(txn, name)
		if err != nil || p == nil || p.LastStatus != lastStatus {
			return err
		}
		removed = true
		return txn.Delete(participantKey(name))
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent heartbeat touched the record.
		return false, nil
	}
	return removed, err
}

// AddMessage stores a message, assigning a ULID.
func (s *BadgerStore) AddMessage(ctx context.Context, msg *models.Message) error {
	stored := *msg
	stored.ID = newULID()
	data, err := msgpack.Marshal(stored)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(stored.ID), data)
	})
	if err != nil {
		return err
	}
	msg.ID = stored.ID
	return nil
}

// GetMessage retrieves a message by id.
func (s *BadgerStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg *models.Message
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getMessage(txn, id)
		msg = found
		return err
	})
	return msg, err
}

// ListMessages retrieves the messages visible to viewer. It walks the log
// newest-first so a limited listing stops early.
func (s *BadgerStore) ListMessages(ctx context.Context, viewer string, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key under the prefix.
		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			var msg models.Message
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &msg)
			})
			if err != nil {
				return err
			}
			if !msg.VisibleTo(viewer) {
				continue
			}
			messages = append(messages, msg)
			if limit > 0 && len(messages) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(messages)
	return messages, nil
}

// UpdateMessage replaces recipient, text and type of an existing message.
func (s *BadgerStore) UpdateMessage(ctx context.Context, msg *models.Message) (bool, error) {
	var updated bool
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getMessage(txn, msg.ID)
		if err != nil || existing == nil {
			return err
		}
		existing.To = msg.To
		existing.Text = msg.Text
		existing.Type = msg.Type
		data, err := msgpack.Marshal(existing)
		if err != nil {
			return err
		}
		updated = true
		return txn.Set(messageKey(msg.ID), data)
	})
	return updated, err
}

// DeleteMessage removes a message permanently.
func (s *BadgerStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, err := getMessage(txn, id)
		if err != nil || existing == nil {
			return err
		}
		deleted = true
		return txn.Delete(messageKey(id))
	})
	return deleted, err
}

// CountMessages returns the number of stored messages.
func (s *BadgerStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func getParticipant(txn *badger.Txn, name string) (*models.Participant, error) {
	item, err := txn.Get(participantKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var p models.Participant
	if err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &p)
	}); err != nil {
		return nil, err
	}
	return &p, nil
}

func getMessage(txn *badger.Txn, id string) (*models.Message, error) {
	if id == "" {
		return nil, nil
	}
	item, err := txn.Get(messageKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var msg models.Message
	if err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &msg)
	}); err != nil {
		return nil, err
	}
	return &msg, nil
}
