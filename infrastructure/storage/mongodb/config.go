// Package mongodb provides a MongoDB-backed implementation of kv.Store.
package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// Config holds MongoDB connection configuration.
type Config struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name.
	Database string

	// Collection holds one document per key.
	Collection string

	// ConnectTimeout bounds the initial connection.
	ConnectTimeout time.Duration

	// QueryTimeout bounds every request.
	QueryTimeout time.Duration

	// KeyPrefix is added to all keys.
	KeyPrefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "plantkeep",
		Collection:     "kv_entries",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
	}
}

// ConfigOption configures the MongoDB connection.
type ConfigOption func(*Config)

// WithURI sets the connection string.
func WithURI(uri string) ConfigOption {
	return func(c *Config) {
		c.URI = uri
	}
}

// WithDatabase sets the database name.
func WithDatabase(name string) ConfigOption {
	return func(c *Config) {
		c.Database = name
	}
}

// WithCollection sets the collection name.
func WithCollection(name string) ConfigOption {
	return func(c *Config) {
		c.Collection = name
	}
}

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(prefix string) ConfigOption {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// Client wraps a MongoDB client with configuration.
type Client struct {
	client *mongo.Client
	config Config
}

// NewClient connects to MongoDB and verifies the connection.
func NewClient(ctx context.Context, cfg Config, opts ...ConfigOption) (*Client, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	return &Client{client: client, config: cfg}, nil
}

// Collection returns the configured collection.
func (c *Client) Collection() *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(c.config.Collection)
}

// Close disconnects from MongoDB.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}
