package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/plantkeep/domain/config"
	"github.com/felixgeelhaar/plantkeep/domain/kv"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/etcd"
	"github.com/felixgeelhaar/plantkeep/infrastructure/storage/gcs"
)

func TestOpen_EmbeddedDrivers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"memory", config.StorageConfig{Driver: config.DriverMemory}},
		{"filesystem", config.StorageConfig{Driver: config.DriverFilesystem, Dir: filepath.Join(dir, "fs")}},
		{"sqlite", config.StorageConfig{Driver: config.DriverSQLite, DSN: filepath.Join(dir, "kv.db")}},
		{"sqlite tuned", config.StorageConfig{
			Driver:      config.DriverSQLite,
			DSN:         filepath.Join(dir, "tuned.db"),
			PoolSize:    1,
			JournalMode: "delete",
			BusyTimeout: config.Duration(time.Second),
		}},
		{"badger", config.StorageConfig{Driver: config.DriverBadger, Dir: filepath.Join(dir, "badger")}},
		{"etcd", config.StorageConfig{Driver: config.DriverEtcd, Prefix: "dev1/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s, err := storage.Open(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("Open(%s) error = %v", tt.name, err)
			}
			defer storage.Close(s)

			if err := s.Set(ctx, "scan_rate_limit", []byte(`{"count":1}`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			v, found, err := s.Get(ctx, "scan_rate_limit")
			if err != nil || !found || string(v) != `{"count":1}` {
				t.Errorf("Get() = %s, %v, %v", v, found, err)
			}
		})
	}
}

func TestOpen_InjectedEtcdClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := etcd.NewMemoryClient()
	s, err := storage.Open(ctx, config.StorageConfig{Driver: config.DriverEtcd}, storage.WithEtcdClient(client))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if len(client.Keys()) != 1 {
		t.Errorf("client keys = %v, want one key", client.Keys())
	}
}

func TestOpen_InjectedGCSClient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := gcs.NewMemoryClient()
	cfg := config.StorageConfig{Driver: config.DriverGCS, Bucket: "plantkeep", Prefix: "dev1/"}
	s, err := storage.Open(ctx, cfg, storage.WithGCSClient(client))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if objs := client.Objects(); len(objs) != 1 || objs[0] != "plantkeep/dev1/kv/k" {
		t.Errorf("objects = %v", objs)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := storage.Open(context.Background(), config.StorageConfig{Driver: "floppy"})
	if !errors.Is(err, kv.ErrUnknownDriver) {
		t.Errorf("Open() error = %v, want ErrUnknownDriver", err)
	}
}

func TestClose_NonCloser(t *testing.T) {
	t.Parallel()

	s, _ := storage.Open(context.Background(), config.StorageConfig{Driver: config.DriverMemory})
	if err := storage.Close(s); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
