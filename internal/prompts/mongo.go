package prompts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/verte-zerg/codetype/internal/model"
)

const connectTimeout = 10 * time.Second

// MongoConfig locates the prompt collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type promptDocument struct {
	Language string `bson:"language"`
	Text     string `bson:"text"`
}

// MongoSource reads prompts from a MongoDB collection of
// {language, text} documents.
type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// OpenMongo connects to MongoDB and verifies the connection.
func OpenMongo(ctx context.Context, cfg MongoConfig) (*MongoSource, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = "codetype"
	}
	if cfg.Collection == "" {
		cfg.Collection = "prompts"
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			// Best-effort disconnect after failed ping.
			_ = derr
		}
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoSource{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// FetchPrompts implements Source.
func (s *MongoSource) FetchPrompts(ctx context.Context, category string) ([]model.Prompt, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "language", Value: 1}, {Key: "text", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.D{{Key: "language", Value: category}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer func() {
		if cerr := cursor.Close(ctx); cerr != nil {
			// Best-effort cursor close.
			_ = cerr
		}
	}()

	var docs []promptDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}
	return documentsToPrompts(docs, category), nil
}

// Close disconnects the client.
func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func documentsToPrompts(docs []promptDocument, category string) []model.Prompt {
	out := make([]model.Prompt, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		cat := doc.Language
		if cat == "" {
			cat = category
		}
		out = append(out, model.Prompt{Category: cat, Text: doc.Text})
	}
	return out
}
