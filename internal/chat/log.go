package chat

import (
	"context"
	"fmt"

	"github.com/eldtechnologies/batepapo/internal/metrics"
	"github.com/eldtechnologies/batepapo/internal/models"
	"github.com/eldtechnologies/batepapo/internal/store"
)

// Log is the message log: append, list with visibility filtering, update and delete.
type Log struct {
	store store.DataStore
	now   Clock
}

// NewLog creates a message log backed by s.
func NewLog(s store.DataStore, opts ...Option) *Log {
	o := buildOptions(opts)
	return &Log{store: s, now: o.now}
}

func (l *Log) timestamp() string {
	return l.now().Format(models.TimeLayout)
}

// List returns the messages visible to viewer in chronological order. When
// limit > 0 only the most recent limit messages are returned.
func (l *Log) List(ctx context.Context, viewer string, limit int) ([]models.Message, error) {
	messages, err := l.store.ListMessages(ctx, viewer, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Post appends a user-authored message from a registered participant.
func (l *Log) Post(ctx context.Context, from string, in MessageInput) (*models.Message, error) {
	in = in.sanitized()
	if err := check(in); err != nil {
		return nil, err
	}

	sender, err := l.store.GetParticipant(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("lookup sender: %w", err)
	}
	if sender == nil {
		return nil, ErrUnknownSender
	}

	msg := &models.Message{
		From: from,
		To:   in.To,
		Text: in.Text,
		Type: in.Type,
		Time: l.timestamp(),
	}
	if err := l.store.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}

	metrics.MessagesPosted.WithLabelValues(string(msg.Type)).Inc()
	return msg, nil
}

// Update replaces recipient, text and type of a message owned by requester.
// Sender and time are kept.
func (l *Log) Update(ctx context.Context, id, requester string, in MessageInput) (*models.Message, error) {
	in = in.sanitized()
	if err := check(in); err != nil {
		return nil, err
	}

	msg, err := l.owned(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	msg.To = in.To
	msg.Text = in.Text
	msg.Type = in.Type

	ok, err := l.store.UpdateMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return msg, nil
}

// Delete removes a message owned by requester.
func (l *Log) Delete(ctx context.Context, id, requester string) error {
	if _, err := l.owned(ctx, id, requester); err != nil {
		return err
	}

	ok, err := l.store.DeleteMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// AppendSystemEvent writes a status broadcast on behalf of from, skipping user validation.
func (l *Log) AppendSystemEvent(ctx context.Context, from, text string) error {
	msg := &models.Message{
		From: from,
		To:   models.Broadcast,
		Text: text,
		Type: models.TypeStatus,
		Time: l.timestamp(),
	}
	if err := l.store.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("add status message: %w", err)
	}
	metrics.MessagesPosted.WithLabelValues(string(models.TypeStatus)).Inc()
	return nil
}

// owned loads message id and checks that requester sent it.
func (l *Log) owned(ctx context.Context, id, requester string) (*models.Message, error) {
	msg, err := l.store.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, ErrNotFound
	}
	if msg.From != requester {
		return nil, ErrUnauthorized
	}
	return msg, nil
}
