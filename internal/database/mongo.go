package database

import (
	"context"
	"fmt"

	"github.com/breakthrough-cafe/cafe-cms/internal/config"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	ArticlesCollection   = "articles"
	CategoriesCollection = "categories"
)

// Mongo wraps a connected client and the application database
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	log    zerolog.Logger
}

// NewMongo connects to MongoDB and verifies the connection
func NewMongo(ctx context.Context, cfg *config.MongoConfig, log zerolog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	m := &Mongo{
		Client: client,
		DB:     client.Database(cfg.Database),
		log:    log.With().Str("component", "mongo").Logger(),
	}

	m.log.Info().
		Str("database", cfg.Database).
		Uint64("max_pool_size", cfg.MaxPoolSize).
		Msg("Mongo connection established")

	return m, nil
}

// EnsureIndexes creates the indexes list queries and slug uniqueness rely on
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.DB.Collection(CategoriesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create category slug index: %w", err)
	}

	_, err = m.DB.Collection(ArticlesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "isFeatured", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create article indexes: %w", err)
	}

	m.log.Info().Msg("Mongo indexes ensured")
	return nil
}

// HealthCheck verifies the mongo connection is healthy
func (m *Mongo) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
