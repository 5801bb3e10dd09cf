package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements MessageStore on top of MongoDB, for deployments that
// already run a document store instead of Postgres.
type MongoStore struct {
	client   *mongo.Client
	messages *mongo.Collection
	configs  *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(database)
	return &MongoStore{
		client:   client,
		messages: db.Collection("messages"),
		configs:  db.Collection("chat_config"),
	}, nil
}

type mongoMessage struct {
	ChatID    int64     `bson:"chat_id"`
	MessageID int64     `bson:"message_id"`
	UserID    int64     `bson:"user_id"`
	UserName  string    `bson:"user_name"`
	Body      string    `bson:"body"`
	ReplyTo   *int64    `bson:"reply_to,omitempty"`
	Kind      string    `bson:"kind"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoConfig struct {
	ChatID            int64  `bson:"_id"`
	Tone              string `bson:"tone"`
	Length            string `bson:"length"`
	Language          string `bson:"language"`
	IncludeNames      bool   `bson:"include_names"`
	DailyHour         int    `bson:"daily_hour"`
	DaysToKeep        int    `bson:"days_to_keep"`
	MinimumToKeep     int    `bson:"minimum_to_keep"`
	EvictionThreshold int    `bson:"eviction_threshold"`
}

func (ms *MongoStore) SaveMessage(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	doc := mongoMessage{
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		UserID:    msg.UserID,
		UserName:  msg.UserName,
		Body:      msg.Body,
		ReplyTo:   msg.ReplyTo,
		Kind:      string(msg.Kind),
		CreatedAt: msg.CreatedAt,
	}
	// Duplicate transport IDs are silently replaced, never an ingest error.
	_, err := ms.messages.UpdateOne(ctx,
		bson.M{"chat_id": msg.ChatID, "message_id": msg.MessageID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return storageErr("save message", err)
	}
	return nil
}

func (ms *MongoStore) RecentMessages(ctx context.Context, chatID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := ms.messages.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, storageErr("recent messages", err)
	}
	defer cur.Close(ctx)

	var msgs []Message
	for cur.Next(ctx) {
		var doc mongoMessage
		if err := cur.Decode(&doc); err != nil {
			return nil, storageErr("decode message", err)
		}
		msgs = append(msgs, Message{
			ChatID:    doc.ChatID,
			MessageID: doc.MessageID,
			UserID:    doc.UserID,
			UserName:  doc.UserName,
			Body:      doc.Body,
			ReplyTo:   doc.ReplyTo,
			Kind:      Kind(doc.Kind),
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, storageErr("recent messages", err)
	}

	reverse(msgs)
	return msgs, nil
}

func (ms *MongoStore) CountMessages(ctx context.Context, chatID int64) (int, error) {
	n, err := ms.messages.CountDocuments(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return 0, storageErr("count messages", err)
	}
	return int(n), nil
}

func (ms *MongoStore) EvictMessages(ctx context.Context, chatID int64, daysToKeep, minimumToKeep int) (int, int, error) {
	total, err := ms.CountMessages(ctx, chatID)
	if err != nil {
		return 0, 0, err
	}
	if total <= minimumToKeep {
		return 0, total, nil
	}

	// Protected set first: the minimumToKeep most recent message IDs.
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "message_id", Value: -1}}).
		SetLimit(int64(minimumToKeep)).
		SetProjection(bson.M{"message_id": 1})
	cur, err := ms.messages.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return 0, 0, storageErr("evict messages", err)
	}
	var protected []int64
	for cur.Next(ctx) {
		var doc struct {
			MessageID int64 `bson:"message_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			cur.Close(ctx)
			return 0, 0, storageErr("evict messages", err)
		}
		protected = append(protected, doc.MessageID)
	}
	cur.Close(ctx)

	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	res, err := ms.messages.DeleteMany(ctx, bson.M{
		"chat_id":    chatID,
		"created_at": bson.M{"$lt": cutoff},
		"message_id": bson.M{"$nin": protected},
	})
	if err != nil {
		return 0, 0, storageErr("evict messages", err)
	}

	deleted := int(res.DeletedCount)
	return deleted, total - deleted, nil
}

func (ms *MongoStore) Config(ctx context.Context, chatID int64) (ChatConfig, error) {
	var doc mongoConfig
	err := ms.configs.FindOne(ctx, bson.M{"_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		cfg := DefaultChatConfig(chatID)
		if err := ms.SaveConfig(ctx, cfg); err != nil {
			return ChatConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return ChatConfig{}, storageErr("load chat config", err)
	}
	return configFromMongo(doc), nil
}

func (ms *MongoStore) SaveConfig(ctx context.Context, cfg ChatConfig) error {
	doc := mongoConfig{
		ChatID:            cfg.ChatID,
		Tone:              cfg.Tone,
		Length:            cfg.Length,
		Language:          cfg.Language,
		IncludeNames:      cfg.IncludeNames,
		DailyHour:         cfg.DailyHour,
		DaysToKeep:        cfg.DaysToKeep,
		MinimumToKeep:     cfg.MinimumToKeep,
		EvictionThreshold: cfg.EvictionThreshold,
	}
	_, err := ms.configs.UpdateOne(ctx,
		bson.M{"_id": cfg.ChatID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return storageErr("save chat config", err)
	}
	return nil
}

func (ms *MongoStore) ScheduledChats(ctx context.Context) ([]ChatConfig, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := ms.configs.Find(ctx, bson.M{"daily_hour": bson.M{"$gte": 0}}, opts)
	if err != nil {
		return nil, storageErr("scheduled chats", err)
	}
	defer cur.Close(ctx)

	var out []ChatConfig
	for cur.Next(ctx) {
		var doc mongoConfig
		if err := cur.Decode(&doc); err != nil {
			return nil, storageErr("decode chat config", err)
		}
		out = append(out, configFromMongo(doc))
	}
	return out, cur.Err()
}

func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

func configFromMongo(doc mongoConfig) ChatConfig {
	return ChatConfig{
		ChatID:            doc.ChatID,
		Tone:              doc.Tone,
		Length:            doc.Length,
		Language:          doc.Language,
		IncludeNames:      doc.IncludeNames,
		DailyHour:         doc.DailyHour,
		DaysToKeep:        doc.DaysToKeep,
		MinimumToKeep:     doc.MinimumToKeep,
		EvictionThreshold: doc.EvictionThreshold,
	}
}

var _ MessageStore = (*MongoStore)(nil)
