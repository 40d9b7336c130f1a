package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/eldtechnologies/batepapo/internal/models"
)

func openBadger(t *testing.T) DataStore {
	t.Helper()
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func openSQLite(t *testing.T) DataStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func openPostgres(t *testing.T) DataStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, `TRUNCATE participants, messages`)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func openMongo(t *testing.T) DataStore {
	t.Helper()
	url := os.Getenv("TEST_MONGO_URL")
	if url == "" {
		t.Skip("TEST_MONGO_URL not set")
	}
	ctx := context.Background()
	db := "batepapo_test_" + strings.ToLower(newULID())
	s, err := NewMongoStore(ctx, url, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Database(db).Drop(context.Background())
		s.Close()
	})
	return s
}

func openRedis(t *testing.T) DataStore {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, url)
	require.NoError(t, err)
	require.NoError(t, s.client.FlushDB(ctx).Err())
	t.Cleanup(s.Close)
	return s
}

var backends = map[string]func(t *testing.T) DataStore{
	"badger":   openBadger,
	"sqlite":   openSQLite,
	"postgres": openPostgres,
	"mongo":    openMongo,
	"redis":    openRedis,
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s DataStore)) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func addMessage(t *testing.T, s DataStore, from, to string, typ models.MessageType) models.Message {
	t.Helper()
	msg := models.Message{From: from, To: to, Text: from + " to " + to, Type: typ, Time: "12:00:00"}
	require.NoError(t, s.AddMessage(context.Background(), &msg))
	require.NotEmpty(t, msg.ID)
	return msg
}

func TestParticipantLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s DataStore) {
		req := require.New(t)
		ctx := context.Background()

		req.NoError(s.Ping(ctx))
		req.NoError(s.CreateParticipant(ctx, models.Participant{Name: "Bruna", LastStatus: 100}))
		req.NoError(s.CreateParticipant(ctx, models.Participant{Name: "Alice", LastStatus: 200}))
		req.ErrorIs(s.CreateParticipant(ctx, models.Participant{Name: "Alice", LastStatus: 300}), ErrDuplicate)

		p, err := s.GetParticipant(ctx, "Alice")
		req.NoError(err)
		req.Equal(&models.Participant{Name: "Alice", LastStatus: 200}, p)

		missing, err := s.GetParticipant(ctx, "Nobody")
		req.NoError(err)
		req.Nil(missing)

		all, err := s.ListParticipants(ctx)
		req.NoError(err)
		req.Equal([]models.Participant{
			{Name: "Alice", LastStatus: 200},
			{Name: "Bruna", LastStatus: 100},
		}, all)

		ok, err := s.TouchParticipant(ctx, "Alice", 500)
		req.NoError(err)
		req.True(ok)

		ok, err = s.TouchParticipant(ctx, "Nobody", 500)
		req.NoError(err)
		req.False(ok)

		// Stale read: the heartbeat moved lastStatus, so the conditional delete misses.
		ok, err = s.RemoveParticipant(ctx, "Alice", 200)
		req.NoError(err)
		req.False(ok)

		ok, err = s.RemoveParticipant(ctx, "Alice", 500)
		req.NoError(err)
		req.True(ok)

		p, err = s.GetParticipant(ctx, "Alice")
		req.NoError(err)
		req.Nil(p)
	})
}

func TestMessagesVisibilityAndLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s DataStore) {
		req := require.New(t)
		ctx := context.Background()

		m1 := addMessage(t, s, "Alice", models.Broadcast, models.TypeMessage)
		m2 := addMessage(t, s, "Alice", "Bob", models.TypePrivateMessage)
		addMessage(t, s, "Carol", "Dave", models.TypePrivateMessage)
		m4 := addMessage(t, s, "Bob", "Carol", models.TypePrivateMessage)
		m5 := addMessage(t, s, "Dave", models.Broadcast, models.TypeStatus)

		all, err := s.ListMessages(ctx, "Bob", 0)
		req.NoError(err)
		req.Equal([]models.Message{m1, m2, m4, m5}, all)

		last2, err := s.ListMessages(ctx, "Bob", 2)
		req.NoError(err)
		req.Equal([]models.Message{m4, m5}, last2)

		more, err := s.ListMessages(ctx, "Bob", 10)
		req.NoError(err)
		req.Equal(all, more)

		stranger, err := s.ListMessages(ctx, "", 0)
		req.NoError(err)
		req.Equal([]models.Message{m1, m5}, stranger)

		count, err := s.CountMessages(ctx)
		req.NoError(err)
		req.EqualValues(5, count)
	})
}

func TestMessageUpdateAndDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s DataStore) {
		req := require.New(t)
		ctx := context.Background()

		msg := addMessage(t, s, "Alice", models.Broadcast, models.TypeMessage)

		edited := models.Message{ID: msg.ID, To: "Bob", Text: "just you", Type: models.TypePrivateMessage}
		ok, err := s.UpdateMessage(ctx, &edited)
		req.NoError(err)
		req.True(ok)

		got, err := s.GetMessage(ctx, msg.ID)
		req.NoError(err)
		req.Equal(&models.Message{
			ID:   msg.ID,
			From: "Alice",
			To:   "Bob",
			Text: "just you",
			Type: models.TypePrivateMessage,
			Time: msg.Time,
		}, got)

		ok, err = s.DeleteMessage(ctx, msg.ID)
		req.NoError(err)
		req.True(ok)

		got, err = s.GetMessage(ctx, msg.ID)
		req.NoError(err)
		req.Nil(got)

		ok, err = s.DeleteMessage(ctx, msg.ID)
		req.NoError(err)
		req.False(ok)

		ok, err = s.UpdateMessage(ctx, &edited)
		req.NoError(err)
		req.False(ok)
	})
}

func TestMessageUnknownIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s DataStore) {
		req := require.New(t)
		ctx := context.Background()

		for _, id := range []string{"not-an-id", bson.NewObjectID().Hex(), NewUUIDv7().String(), newULID()} {
			got, err := s.GetMessage(ctx, id)
			req.NoError(err)
			req.Nil(got)

			ok, err := s.UpdateMessage(ctx, &models.Message{ID: id, To: models.Broadcast, Text: "x", Type: models.TypeMessage})
			req.NoError(err)
			req.False(ok)

			ok, err = s.DeleteMessage(ctx, id)
			req.NoError(err)
			req.False(ok)
		}
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "cassandra"})
	require.ErrorContains(t, err, "unknown store driver")
}

func TestOpenBadger(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DriverBadger, BadgerPath: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))
}

func TestOpenRedisBadURL(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DriverRedis, RedisURL: "not a url"})
	require.Error(t, err)
	require.Nil(t, s)
}
