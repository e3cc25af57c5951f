package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/durjog/durjog-map/internal/domain"
)

// client is the subset of go-redis the snapshot store uses.
type client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// SnapshotStore caches the latest cluster snapshot in Redis so a restarted
// instance can serve the map before its first refresh completes.
// It implements refresh.SnapshotSink.
type SnapshotStore struct {
	client client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewClient creates a go-redis client for addr.
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr: addr,
	})
}

// NewSnapshotStore stores snapshots under key. Entries expire after ttl so a
// stale snapshot is never restored after a long outage.
func NewSnapshotStore(c client, key string, ttl time.Duration, logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{client: c, key: key, ttl: ttl, logger: logger}
}

func (s *SnapshotStore) Name() string { return "redis" }

// PublishSnapshot overwrites the cached snapshot with snap.
func (s *SnapshotStore) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// LoadSnapshot returns the cached snapshot, or nil when none is cached.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}

// CheckReadiness pings Redis.
func (s *SnapshotStore) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis not reachable: %w", err)
	}
	return nil
}
