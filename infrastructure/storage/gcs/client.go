package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// CloudClient adapts the Cloud Storage SDK to Client.
type CloudClient struct {
	client *storage.Client
}

// NewCloudClient creates a client using application default credentials.
// A non-empty endpoint targets an emulator without authentication.
func NewCloudClient(ctx context.Context, endpoint string) (*CloudClient, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	c, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &CloudClient{client: c}, nil
}

// Upload implements Client.
func (c *CloudClient) Upload(ctx context.Context, bucket, object string, content io.Reader) error {
	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := io.Copy(w, content); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Download implements Client.
func (c *CloudClient) Download(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete implements Client.
func (c *CloudClient) Delete(ctx context.Context, bucket, object string) error {
	err := c.client.Bucket(bucket).Object(object).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

// List implements Client.
func (c *CloudClient) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	it := c.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
}

// Close implements Client.
func (c *CloudClient) Close() error {
	return c.client.Close()
}

var _ Client = (*CloudClient)(nil)
