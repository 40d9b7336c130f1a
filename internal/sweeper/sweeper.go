// Package sweeper evicts participants whose heartbeat has lapsed.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/batepapo/internal/chat"
	"github.com/eldtechnologies/batepapo/internal/metrics"
	"github.com/eldtechnologies/batepapo/internal/models"
	"github.com/eldtechnologies/batepapo/internal/store"
)

// Config holds the sweep timings.
type Config struct {
	Interval   time.Duration // time between ticks
	StaleAfter time.Duration // heartbeat age that triggers eviction
	Timeout    time.Duration // upper bound for one tick
}

// DefaultConfig matches the intervals used by the web client.
var DefaultConfig = Config{
	Interval:   15 * time.Second,
	StaleAfter: 10 * time.Second,
	Timeout:    10 * time.Second,
}

// Sweeper periodically removes stale participants and logs their departure.
type Sweeper struct {
	store  store.DataStore
	log    *chat.Log
	logger zerolog.Logger
	cfg    Config
	now    chat.Clock
}

// New creates a sweeper. now may be nil, in which case time.Now is used.
func New(s store.DataStore, log *chat.Log, logger zerolog.Logger, cfg Config, now chat.Clock) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		store:  s,
		log:    log,
		logger: logger.With().Str("component", "sweeper").Logger(),
		cfg:    cfg,
		now:    now,
	}
}

// Run ticks every cfg.Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Dur("stale_after", s.cfg.StaleAfter).
		Msg("starting inactivity sweeper")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("sweep finished with errors")
			}
		}
	}
}

// Tick runs one sweep and returns how many participants were removed. A failure
// for one participant does not stop the others; all failures are joined into the
// returned error.
func (s *Sweeper) Tick(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	now := s.now().UnixMilli()
	participants, err := s.store.ListParticipants(ctx)
	if err != nil {
		return 0, fmt.Errorf("list participants: %w", err)
	}

	var (
		evicted int
		errs    []error
	)
	for _, p := range participants {
		if !s.stale(p, now) {
			continue
		}

		removed, err := s.evict(ctx, p)
		if removed {
			evicted++
		}
		if err != nil {
			metrics.SweepFailures.Inc()
			s.logger.Error().Err(err).Str("participant", p.Name).Msg("eviction failed")
			errs = append(errs, err)
		}
	}

	return evicted, errors.Join(errs...)
}

func (s *Sweeper) stale(p models.Participant, now int64) bool {
	age := time.Duration(now-p.LastStatus) * time.Millisecond
	return age > s.cfg.StaleAfter
}

// evict removes p if its heartbeat is unchanged since the scan, then writes the
// departure message. It reports false when a heartbeat won the race.
func (s *Sweeper) evict(ctx context.Context, p models.Participant) (bool, error) {
	removed, err := s.store.RemoveParticipant(ctx, p.Name, p.LastStatus)
	if err != nil {
		return false, fmt.Errorf("remove %q: %w", p.Name, err)
	}
	if !removed {
		s.logger.Debug().Str("participant", p.Name).Msg("heartbeat arrived during sweep")
		return false, nil
	}

	metrics.ParticipantsEvicted.Inc()
	s.logger.Info().Str("participant", p.Name).Msg("participant evicted")

	if err := s.log.AppendSystemEvent(ctx, p.Name, chat.LeaveText); err != nil {
		return true, fmt.Errorf("log departure of %q: %w", p.Name, err)
	}
	return true, nil
}
