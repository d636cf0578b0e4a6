// Package cache shares the published market index through Redis so a fresh
// process can serve recommendations before its first rebuild.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
}

// SnapshotStore implements pricing.SnapshotStore on a single Redis key.
type SnapshotStore struct {
	store  cmdable
	raw    *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies it with a ping.
func New(ctx context.Context, cfg common.RedisConfig, logger *zap.Logger) (*SnapshotStore, error) {
	if !cfg.Enabled() {
		return nil, common.NewValidationError("redis url is required", common.ErrInvalidInput)
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, common.NewValidationError("parsing redis url", err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, common.NewDependencyError("ping redis", err)
	}
	s := newStore(raw, cfg.SnapshotKey, cfg.SnapshotTTL, logger)
	s.raw = raw
	return s, nil
}

func newStore(c cmdable, key string, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = "priceintel:market:index"
	}
	return &SnapshotStore{store: c, key: key, ttl: ttl, logger: logger}
}

func (s *SnapshotStore) Save(ctx context.Context, snap pricing.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return common.NewInternalError("encoding snapshot", err)
	}
	if err := s.store.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return common.NewDependencyError("storing snapshot", err)
	}
	s.logger.Debug("cache.snapshot.saved", zap.String("key", s.key), zap.Int("entries", len(snap.Entries)))
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (pricing.Snapshot, bool, error) {
	raw, err := s.store.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return pricing.Snapshot{}, false, nil
	}
	if err != nil {
		return pricing.Snapshot{}, false, common.NewDependencyError("loading snapshot", err)
	}
	var snap pricing.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return pricing.Snapshot{}, false, common.NewDependencyError(fmt.Sprintf("decoding snapshot %s", s.key), err)
	}
	return snap, true, nil
}

// Ping is used by the health endpoint.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx).Err()
}

func (s *SnapshotStore) Close() error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}
