package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
)

var errClientClosed = errors.New("gcs: client closed")

// MemoryClient is an in-process Client for tests.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
	closed  bool
}

// NewMemoryClient creates an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string][]byte)}
}

func objectKey(bucket, object string) string {
	return bucket + "/" + object
}

// Upload implements Client.
func (c *MemoryClient) Upload(_ context.Context, bucket, object string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	c.objects[objectKey(bucket, object)] = data
	return nil
}

// Download implements Client.
func (c *MemoryClient) Download(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errClientClosed
	}
	data, ok := c.objects[objectKey(bucket, object)]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// Delete implements Client.
func (c *MemoryClient) Delete(_ context.Context, bucket, object string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	delete(c.objects, objectKey(bucket, object))
	return nil
}

// List implements Client.
func (c *MemoryClient) List(_ context.Context, bucket, prefix string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, errClientClosed
	}

	full := objectKey(bucket, prefix)
	var names []string
	for k := range c.objects {
		if strings.HasPrefix(k, full) {
			names = append(names, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Client.
func (c *MemoryClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Objects returns the stored object paths as bucket/object, sorted.
func (c *MemoryClient) Objects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.objects))
	for k := range c.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
