package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("kv"),
	}
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func (m *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return []byte(doc.Value), nil
}

func (m *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	update := bson.M{"$set": bson.M{
		"value":      string(value),
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": key}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert key: %w", err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}
