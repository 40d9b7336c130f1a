package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/eldtechnologies/batepapo/internal/chat"
	"github.com/eldtechnologies/batepapo/internal/models"
	"github.com/eldtechnologies/batepapo/internal/store"
	"github.com/eldtechnologies/batepapo/mocks"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newBadger(t *testing.T) store.DataStore {
	t.Helper()
	s, err := store.NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func statusMessages(t *testing.T, s store.DataStore, text string) []models.Message {
	t.Helper()
	msgs, err := s.ListMessages(context.Background(), "", 0)
	require.NoError(t, err)
	var out []models.Message
	for _, m := range msgs {
		if m.Type == models.TypeStatus && m.Text == text {
			out = append(out, m)
		}
	}
	return out
}

func TestTickEvictsStaleParticipant(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newBadger(t)
	clock := &fakeClock{now: base}

	log := chat.NewLog(s, chat.WithClock(clock.Now))
	reg := chat.NewRegistry(s, log, chat.WithClock(clock.Now))
	_, err := reg.Register(ctx, "Carol")
	req.NoError(err)
	_, err = reg.Register(ctx, "Dave")
	req.NoError(err)

	clock.now = base.Add(6 * time.Second)
	req.NoError(reg.Heartbeat(ctx, "Dave"))

	clock.now = base.Add(11 * time.Second)
	sw := New(s, log, zerolog.Nop(), DefaultConfig, clock.Now)

	n, err := sw.Tick(ctx)
	req.NoError(err)
	req.Equal(1, n)

	carol, err := reg.Get(ctx, "Carol")
	req.NoError(err)
	req.Nil(carol)
	dave, err := reg.Get(ctx, "Dave")
	req.NoError(err)
	req.NotNil(dave)

	left := statusMessages(t, s, chat.LeaveText)
	req.Len(left, 1)
	req.Equal("Carol", left[0].From)
	req.Equal(models.Broadcast, left[0].To)
	req.Equal("12:00:11", left[0].Time)

	// A second sweep finds nothing new.
	n, err = sw.Tick(ctx)
	req.NoError(err)
	req.Zero(n)
	req.Len(statusMessages(t, s, chat.LeaveText), 1)
}

func TestTickKeepsParticipantAtThreshold(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newBadger(t)
	clock := &fakeClock{now: base}

	log := chat.NewLog(s, chat.WithClock(clock.Now))
	reg := chat.NewRegistry(s, log, chat.WithClock(clock.Now))
	_, err := reg.Register(ctx, "Carol")
	req.NoError(err)

	clock.now = base.Add(10 * time.Second)
	n, err := New(s, log, zerolog.Nop(), DefaultConfig, clock.Now).Tick(ctx)
	req.NoError(err)
	req.Zero(n)
	req.Empty(statusMessages(t, s, chat.LeaveText))
}

func TestTickLosesRaceToHeartbeat(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	s := mocks.NewMockDataStore(ctrl)

	stale := models.Participant{Name: "Carol", LastStatus: base.UnixMilli()}
	s.EXPECT().ListParticipants(gomock.Any()).Return([]models.Participant{stale}, nil)
	// The heartbeat moved lastStatus between the scan and the delete.
	s.EXPECT().RemoveParticipant(gomock.Any(), "Carol", stale.LastStatus).Return(false, nil)

	log := chat.NewLog(s)
	sw := New(s, log, zerolog.Nop(), DefaultConfig, func() time.Time { return base.Add(time.Minute) })

	n, err := sw.Tick(ctx)
	req.NoError(err)
	req.Zero(n)
}

func TestTickContinuesPastFailures(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	s := mocks.NewMockDataStore(ctrl)

	ts := base.UnixMilli()
	s.EXPECT().ListParticipants(gomock.Any()).Return([]models.Participant{
		{Name: "Alice", LastStatus: ts},
		{Name: "Bob", LastStatus: ts},
		{Name: "Carol", LastStatus: ts},
	}, nil)

	boom := errors.New("connection reset")
	s.EXPECT().RemoveParticipant(gomock.Any(), "Alice", ts).Return(true, nil)
	s.EXPECT().RemoveParticipant(gomock.Any(), "Bob", ts).Return(false, boom)
	s.EXPECT().RemoveParticipant(gomock.Any(), "Carol", ts).Return(true, nil)

	var departed []string
	s.EXPECT().AddMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *models.Message) error {
			req.Equal(chat.LeaveText, msg.Text)
			req.Equal(models.TypeStatus, msg.Type)
			departed = append(departed, msg.From)
			return nil
		}).
		Times(2)

	log := chat.NewLog(s)
	sw := New(s, log, zerolog.Nop(), DefaultConfig, func() time.Time { return base.Add(time.Minute) })

	n, err := sw.Tick(ctx)
	req.ErrorIs(err, boom)
	req.ErrorContains(err, `"Bob"`)
	req.Equal(2, n)
	req.Equal([]string{"Alice", "Carol"}, departed)
}

func TestTickListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := mocks.NewMockDataStore(ctrl)
	boom := errors.New("store down")
	s.EXPECT().ListParticipants(gomock.Any()).Return(nil, boom)

	sw := New(s, chat.NewLog(s), zerolog.Nop(), DefaultConfig, nil)
	n, err := sw.Tick(context.Background())
	require.ErrorIs(t, err, boom)
	require.Zero(t, n)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newBadger(t)
	cfg := DefaultConfig
	cfg.Interval = 5 * time.Millisecond
	sw := New(s, chat.NewLog(s), zerolog.Nop(), cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
