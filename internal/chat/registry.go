package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/eldtechnologies/batepapo/internal/metrics"
	"github.com/eldtechnologies/batepapo/internal/models"
	"github.com/eldtechnologies/batepapo/internal/store"
)

const (
	JoinText  = "entra na sala..."
	LeaveText = "sai da sala..."
)

// Registry tracks participants and their heartbeats.
type Registry struct {
	store store.DataStore
	log   *Log
	now   Clock
}

// NewRegistry creates a participant registry. Join events are written to log.
func NewRegistry(s store.DataStore, log *Log, opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{store: s, log: log, now: o.now}
}

// List returns every participant.
func (r *Registry) List(ctx context.Context) ([]models.Participant, error) {
	participants, err := r.store.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return participants, nil
}

// Get returns the participant called name, or nil.
func (r *Registry) Get(ctx context.Context, name string) (*models.Participant, error) {
	p, err := r.store.GetParticipant(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// Register adds a participant and announces the arrival. It returns the stored
// participant, whose name is the sanitized form of name.
func (r *Registry) Register(ctx context.Context, name string) (*models.Participant, error) {
	in := participantInput{Name: Sanitize(name)}
	if err := check(in); err != nil {
		return nil, err
	}

	existing, err := r.Get(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	p := models.Participant{Name: in.Name, LastStatus: r.now().UnixMilli()}
	if err := r.store.CreateParticipant(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create participant: %w", err)
	}

	if err := r.log.AppendSystemEvent(ctx, p.Name, JoinText); err != nil {
		// Undo the insert so the name can be registered again.
		if _, rmErr := r.store.RemoveParticipant(ctx, p.Name, p.LastStatus); rmErr != nil {
			return nil, errors.Join(err, fmt.Errorf("roll back participant: %w", rmErr))
		}
		return nil, err
	}

	metrics.ParticipantsRegistered.Inc()
	return &p, nil
}

// Heartbeat refreshes the participant's lastStatus.
func (r *Registry) Heartbeat(ctx context.Context, name string) error {
	ok, err := r.store.TouchParticipant(ctx, name, r.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("touch participant: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
