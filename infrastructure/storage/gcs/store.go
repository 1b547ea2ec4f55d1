// Package gcs provides a Google Cloud Storage implementation of kv.Store.
//
// Every key is one object under "<prefix>kv/". The store talks to GCS
// through the Client interface; NewCloudClient adapts the official SDK.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

// Errors returned by the store and its clients.
var (
	// ErrClientRequired is returned when no client is configured.
	ErrClientRequired = errors.New("gcs client is required")

	// ErrBucketRequired is returned when no bucket is configured.
	ErrBucketRequired = errors.New("bucket name is required")

	// ErrNotFound is returned by Client.Download for a missing object.
	ErrNotFound = errors.New("gcs: object not found")
)

// maxObjectSize bounds a single read.
const maxObjectSize = 32 << 20

// Client defines the object operations the store needs.
type Client interface {
	// Upload writes content to an object, replacing it.
	Upload(ctx context.Context, bucket, object string, content io.Reader) error

	// Download opens an object. Missing objects return ErrNotFound.
	Download(ctx context.Context, bucket, object string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, object string) error

	// List returns the names of objects starting with prefix.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Close releases the client.
	Close() error
}

// Config holds configuration for the GCS store.
type Config struct {
	// Client is the GCS client to use.
	Client Client

	// Bucket is the GCS bucket name.
	Bucket string

	// Prefix is an optional prefix for all objects.
	Prefix string
}

// Store is a GCS-backed kv.Store.
type Store struct {
	client Client
	bucket string
	prefix string
	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore creates a GCS store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrClientRequired
	}
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	return &Store{
		client: cfg.Client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *Store) namespace() string {
	return s.prefix + "kv/"
}

func (s *Store) objectPath(key string) string {
	return s.namespace() + key
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	r, err := s.client.Download(ctx, s.bucket, s.objectPath(key))
	if errors.Is(err, ErrNotFound) {
		s.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("download %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxObjectSize))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}

	s.hits.Add(1)
	return data, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	if err := s.client.Upload(ctx, s.bucket, s.objectPath(key), bytes.NewReader(value)); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.client.Delete(ctx, s.bucket, s.objectPath(key))
}

// Clear removes every object under the store's namespace.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objects, err := s.client.List(ctx, s.bucket, s.namespace())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	var errs []error
	for _, obj := range objects {
		if err := s.client.Delete(ctx, s.bucket, obj); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns store statistics. Size is not tracked.
func (s *Store) Stats() kv.Stats {
	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   -1,
	}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ kv.Store         = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
	_ kv.Closer        = (*Store)(nil)
)
