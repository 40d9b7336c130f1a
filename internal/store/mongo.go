package store

import (
	"context"
	"errors"
	"slices"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/eldtechnologies/batepapo/internal/models"
)

const (
	participantsCollection = "participants"
	messagesCollection     = "messages"
)

// participantDoc maps to the participants collection.
type participantDoc struct {
	Name       string `bson:"name"`
	LastStatus int64  `bson:"lastStatus"`
}

// messageDoc maps to the messages collection.
type messageDoc struct {
	ID   bson.ObjectID `bson:"_id,omitempty"`
	From string        `bson:"from"`
	To   string        `bson:"to"`
	Text string        `bson:"text"`
	Type string        `bson:"type"`
	Time string        `bson:"time"`
}

func (d messageDoc) model() models.Message {
	return models.Message{
		ID:   d.ID.Hex(),
		From: d.From,
		To:   d.To,
		Text: d.Text,
		Type: models.MessageType(d.Type),
		Time: d.Time,
	}
}

// MongoStore handles MongoDB operations.
type MongoStore struct {
	client       *mongo.Client
	participants *mongo.Collection
	messages     *mongo.Collection
}

// NewMongoStore connects to MongoDB and prepares the collections.
func NewMongoStore(ctx context.Context, mongoURL, database string) (*MongoStore, error) {
	if database == "" {
		database = "batePapoUol"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		participants: db.Collection(participantsCollection),
		messages:     db.Collection(messagesCollection),
	}

	// Names are unique; the index backs up the duplicate check in the registry.
	_, err = s.participants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() {
	_ = s.client.Disconnect(context.Background())
}

// Ping checks the MongoDB connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// CreateParticipant inserts a participant, failing with ErrDuplicate on a taken name.
func (s *MongoStore) CreateParticipant(ctx context.Context, p models.Participant) error {
	_, err := s.participants.InsertOne(ctx, participantDoc{Name: p.Name, LastStatus: p.LastStatus})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// GetParticipant retrieves a participant by name.
func (s *MongoStore) GetParticipant(ctx context.Context, name string) (*models.Participant, error) {
	var doc participantDoc
	err := s.participants.FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &models.Participant{Name: doc.Name, LastStatus: doc.LastStatus}, nil
}

// ListParticipants retrieves all participants ordered by name.
func (s *MongoStore) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	cursor, err := s.participants.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}

	var docs []participantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	participants := make([]models.Participant, len(docs))
	for i, doc := range docs {
		participants[i] = models.Participant{Name: doc.Name, LastStatus: doc.LastStatus}
	}
	return participants, nil
}

// TouchParticipant replaces the heartbeat timestamp.
func (s *MongoStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	result, err := s.participants.UpdateOne(ctx,
		bson.D{{Key: "name", Value: name}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "lastStatus", Value: lastStatus}}}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// RemoveParticipant deletes a participant whose heartbeat has not moved.
func (s *MongoStore) RemoveParticipant(ctx context.Context, name string, lastStatus int64) (bool, error) {
	result, err := s.participants.DeleteOne(ctx, bson.D{
		{Key: "name", Value: name},
		{Key: "lastStatus", Value: lastStatus},
	})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// AddMessage stores a message. The ObjectID is generated client-side so that
// ids from this process sort in insertion order.
func (s *MongoStore) AddMessage(ctx context.Context, msg *models.Message) error {
	doc := messageDoc{
		ID:   bson.NewObjectID(),
		From: msg.From,
		To:   msg.To,
		Text: msg.Text,
		Type: string(msg.Type),
		Time: msg.Time,
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return err
	}
	msg.ID = doc.ID.Hex()
	return nil
}

// GetMessage retrieves a message by id. Ids that are not ObjectIDs match nothing.
func (s *MongoStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc messageDoc
	err = s.messages.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	msg := doc.model()
	return &msg, nil
}

// ListMessages retrieves the messages visible to viewer.
func (s *MongoStore) ListMessages(ctx context.Context, viewer string, limit int) ([]models.Message, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "from", Value: viewer}},
		bson.D{{Key: "to", Value: viewer}},
		bson.D{{Key: "to", Value: models.Broadcast}},
	}}}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	messages := make([]models.Message, len(docs))
	for i, doc := range docs {
		messages[i] = doc.model()
	}
	slices.Reverse(messages)
	return messages, nil
}

// UpdateMessage replaces recipient, text and type of an existing message.
func (s *MongoStore) UpdateMessage(ctx context.Context, msg *models.Message) (bool, error) {
	oid, err := bson.ObjectIDFromHex(msg.ID)
	if err != nil {
		return false, nil
	}

	result, err := s.messages.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "to", Value: msg.To},
			{Key: "text", Value: msg.Text},
			{Key: "type", Value: string(msg.Type)},
		}}},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}

// DeleteMessage removes a message permanently.
func (s *MongoStore) DeleteMessage(ctx context.Context, id string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	result, err := s.messages.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

// CountMessages returns the number of stored messages.
func (s *MongoStore) CountMessages(ctx context.Context) (int64, error) {
	return s.messages.CountDocuments(ctx, bson.D{})
}
