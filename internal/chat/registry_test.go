package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/eldtechnologies/batepapo/internal/models"
	"github.com/eldtechnologies/batepapo/mocks"
)

func TestRegisterRollsBackWhenJoinFails(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	s := mocks.NewMockDataStore(ctrl)

	reg := NewRegistry(s, NewLog(s, WithClock(fixedClock)), WithClock(fixedClock))
	ts := fixedNow.UnixMilli()
	boom := errors.New("write failed")

	gomock.InOrder(
		s.EXPECT().GetParticipant(gomock.Any(), "Alice").Return(nil, nil),
		s.EXPECT().CreateParticipant(gomock.Any(), models.Participant{Name: "Alice", LastStatus: ts}).Return(nil),
		s.EXPECT().AddMessage(gomock.Any(), gomock.Any()).Return(boom),
		s.EXPECT().RemoveParticipant(gomock.Any(), "Alice", ts).Return(true, nil),
	)

	_, err := reg.Register(ctx, "Alice")
	req.ErrorIs(err, boom)
	req.NotErrorIs(err, ErrConflict)
}

func TestRegisterRetryAfterFailedJoin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	s := mocks.NewMockDataStore(ctrl)

	reg := NewRegistry(s, NewLog(s, WithClock(fixedClock)), WithClock(fixedClock))
	boom := errors.New("write failed")

	// First attempt: the join message fails and the insert is undone.
	s.EXPECT().GetParticipant(gomock.Any(), "Alice").Return(nil, nil).Times(2)
	s.EXPECT().CreateParticipant(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	gomock.InOrder(
		s.EXPECT().AddMessage(gomock.Any(), gomock.Any()).Return(boom),
		s.EXPECT().AddMessage(gomock.Any(), gomock.Any()).Return(nil),
	)
	s.EXPECT().RemoveParticipant(gomock.Any(), "Alice", gomock.Any()).Return(true, nil)

	_, err := reg.Register(ctx, "Alice")
	req.ErrorIs(err, boom)

	p, err := reg.Register(ctx, "Alice")
	req.NoError(err)
	req.Equal("Alice", p.Name)
}

func TestRegisterReportsFailedRollback(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	s := mocks.NewMockDataStore(ctrl)

	reg := NewRegistry(s, NewLog(s, WithClock(fixedClock)), WithClock(fixedClock))
	boom := errors.New("write failed")
	gone := errors.New("connection lost")

	s.EXPECT().GetParticipant(gomock.Any(), "Alice").Return(nil, nil)
	s.EXPECT().CreateParticipant(gomock.Any(), gomock.Any()).Return(nil)
	s.EXPECT().AddMessage(gomock.Any(), gomock.Any()).Return(boom)
	s.EXPECT().RemoveParticipant(gomock.Any(), "Alice", gomock.Any()).Return(false, gone)

	_, err := reg.Register(context.Background(), "Alice")
	req.ErrorIs(err, boom)
	req.ErrorIs(err, gone)
}
