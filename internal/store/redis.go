package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/eldtechnologies/batepapo/internal/models"
)

const (
	participantsKey  = "participants"   // hash: name -> lastStatus
	messagesKey      = "messages"       // hash: id -> JSON message
	messagesOrderKey = "messages:order" // sorted set: id scored by sequence
	messagesSeqKey   = "messages:seq"   // counter feeding messagesOrderKey
)

var (
	// setIfExistsScript overwrites a hash field only if it is already present.
	setIfExistsScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

	// removeScript deletes a participant only if lastStatus is unchanged.
	removeScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
	redis.call('HDEL', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

	// addMessageScript appends a message behind the current sequence.
	addMessageScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return seq
`)
)

// RedisStore handles Redis operations for participants and messages.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	_ = s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// CreateParticipant inserts a participant, failing with ErrDuplicate on a taken name.
func (s *RedisStore) CreateParticipant(ctx context.Context, p models.Participant) error {
	ok, err := s.client.HSetNX(ctx, participantsKey, p.Name, p.LastStatus).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// GetParticipant retrieves a participant by name.
func (s *RedisStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	lastStatus, err := s.client.HGet(ctx, participantsKey, name).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return &models.Participant{Name: name, LastStatus: lastStatus}, nil
}

// ListParticipants retrieves all participants ordered by name.
func (s *RedisStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	all, err := s.client.HGetAll(ctx, participantsKey).Result()
	if err != nil {
		return nil, err
	}

	participants := make([]models.Participant, 0, len(all))
	for name, raw := range all {
		lastStatus, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		participants = append(participants, models.Participant{Name: name, LastStatus: lastStatus})
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Name < participants[j].Name
	})
	return participants, nil
}

// TouchParticipant replaces the heartbeat timestamp.
func (s *RedisStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	n, err := setIfExistsScript.Run(ctx, s.client, []string{participantsKey}, name, lastStatus).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RemoveParticipant deletes a participant whose heartbeat has not moved.
func (s *RedisStore) RemoveParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	n, err := removeScript.Run(ctx, s.client, []string{participantsKey},
		name, strconv.FormatInt(lastStatus, 10)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AddMessage stores a message, assigning a ULID.
func (s *RedisStore) AddMessage(ctx context.Context, msg *models.Message) error {
	msg.ID = newULID()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	keys := []string{messagesKey, messagesOrderKey, messagesSeqKey}
	return addMessageScript.Run(ctx, s.client, keys, msg.ID, string(data)).Err()
}

// GetMessage retrieves a message by id.
func (s *RedisStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	data, err := s.client.HGet(ctx, messagesKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msg models.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages retrieves the messages visible to viewer.
func (s *RedisStore) ListMessages(ctx context.Context, viewer string, limit int) ([]models.Message, error) {
	ids, err := s.client.ZRange(ctx, messagesOrderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Message{}, nil
	}

	values, err := s.client.HMGet(ctx, messagesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(values))
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue // deleted between ZRANGE and HMGET
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	visible := lo.Filter(messages, func(m models.Message, _ int) bool {
		return m.VisibleTo(viewer)
	})
	return models.LastN(visible, limit), nil
}

// UpdateMessage replaces recipient, text and type of an existing message.
func (s *RedisStore) UpdateMessage(ctx context.Context, msg *models.Message) (bool, error) {
	existing, err := s.GetMessage(ctx, msg.ID)
	if err != nil || existing == nil {
		return false, err
	}

	existing.To = msg.To
	existing.Text = msg.Text
	existing.Type = msg.Type

	data, err := json.Marshal(existing)
	if err != nil {
		return false, err
	}

	n, err := setIfExistsScript.Run(ctx, s.client, []string{messagesKey}, msg.ID, string(data)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteMessage removes a message permanently.
func (s *RedisStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	pipe := s.client.TxPipeline()
	deleted := pipe.HDel(ctx, messagesKey, id)
	pipe.ZRem(ctx, messagesOrderKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return deleted.Val() > 0, nil
}

// CountMessages returns the number of stored messages.
func (s *RedisStore) CountMessages(ctx context.Context) (int64, error) {
	return s.client.HLen(ctx, messagesKey).Result()
}
