package mongodb

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// document is the stored form of one key.
type document struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store is a MongoDB-backed implementation of kv.Store.
type Store struct {
	client       *Client
	collection   *mongo.Collection
	keyPrefix    string
	queryTimeout time.Duration
	hits         atomic.Int64
	misses       atomic.Int64
}

// NewStore creates a store over a connected client.
func NewStore(client *Client) *Store {
	timeout := client.config.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().QueryTimeout
	}
	return &Store{
		client:       client,
		collection:   client.Collection(),
		keyPrefix:    client.config.KeyPrefix,
		queryTimeout: timeout,
	}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": s.prefixKey(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapError(err)
	}

	s.hits.Add(1)
	return doc.Value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	doc := document{Key: s.prefixKey(key), Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.Key},
		doc,
		options.Replace().SetUpsert(true),
	)
	return wrapError(err)
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": s.prefixKey(key)})
	return wrapError(err)
}

// DeleteMany removes several keys with one request.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.DeleteMany(ctx, inFilter(s.keyPrefix, keys))
	return wrapError(err)
}

// Clear removes every key owned by the store.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.DeleteMany(ctx, prefixFilter(s.keyPrefix))
	return wrapError(err)
}

func inFilter(prefix string, keys []string) bson.M {
	ids := make(bson.A, len(keys))
	for i, k := range keys {
		ids[i] = prefix + k
	}
	return bson.M{"_id": bson.M{"$in": ids}}
}

func prefixFilter(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	return bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}

// Stats returns store statistics.
func (s *Store) Stats() kv.Stats {
	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   -1,
	}
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return errors.Join(kv.ErrOperationTimeout, err)
	}
	if mongo.IsNetworkError(err) {
		return errors.Join(kv.ErrConnectionFailed, err)
	}
	return err
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.BatchDeleter  = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
	_ kv.Closer        = (*Store)(nil)
)
