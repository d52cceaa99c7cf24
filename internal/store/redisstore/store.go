// Package redisstore keeps snapshots in Redis so several servers can
// share a library of saved patches.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "patchbay:snapshot:"

// noExpiry scores index members that never expire (2100-01-01).
const noExpiry = 4102444800

// Store implements engine.SnapshotStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for snapshots. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for snapshots.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSnapshot writes the snapshot and indexes its name.
func (s *Store) SaveSnapshot(ctx context.Context, snap *ir.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	score := float64(s.now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(snap.Name), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: snap.Name})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// LoadSnapshot reads the named snapshot.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (*ir.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", engine.ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snap ir.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", name, err)
	}
	if snap.Nodes == nil {
		snap.Nodes = []ir.SnapshotNode{}
	}
	return &snap, nil
}

// DeleteSnapshot removes the named snapshot.
func (s *Store) DeleteSnapshot(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", engine.ErrSnapshotNotFound, name)
	}
	return nil
}

// ListSnapshots prunes expired index entries and summarizes the rest,
// sorted by name.
func (s *Store) ListSnapshots(ctx context.Context) ([]ir.SnapshotInfo, error) {
	now := float64(s.now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired snapshots: %w", err)
	}

	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	sort.Strings(names)

	infos := make([]ir.SnapshotInfo, 0, len(names))
	for _, name := range names {
		snap, err := s.LoadSnapshot(ctx, name)
		if errors.Is(err, engine.ErrSnapshotNotFound) {
			// Expired between the prune and the read.
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, snap.Info())
	}
	return infos, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
