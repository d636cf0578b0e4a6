package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/price-intel/internal/common"
	"github.com/joseph-ayodele/price-intel/internal/entity"
	"github.com/joseph-ayodele/price-intel/internal/pricing"
)

type mockCmdable struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if m.failGet != nil {
		return redis.NewStringResult("", m.failGet)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	s := newStore(mock, "test:index", time.Hour, nil)

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "missing key is not an error")

	built := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := pricing.Snapshot{BuiltAt: built, Entries: []entity.MarketPriceEntry{{
		Key:         "kabel nym 3x1,5|m|elektro",
		Description: "Kabel NYM 3x1,5",
		Unit:        "m",
		PriceRange:  entity.PriceRange{Min: 42, Max: 48, Avg: 45},
		Confidence:  0.8,
		SourceCount: 3,
	}}}
	require.NoError(t, s.Save(ctx, snap))
	assert.Equal(t, time.Hour, mock.ttls["test:index"])

	got, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, built.Equal(got.BuiltAt))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, 45.0, got.Entries[0].PriceRange.Avg)
	assert.Equal(t, 3, got.Entries[0].SourceCount)
}

func TestSnapshotStore_Errors(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	s := newStore(mock, "", 0, nil)
	assert.Equal(t, "priceintel:market:index", s.key)

	mock.data[s.key] = "{not json"
	_, ok, err := s.Load(ctx)
	assert.False(t, ok)
	assert.True(t, common.IsCode(err, common.CodeDependency))

	mock.failGet = errors.New("connection refused")
	_, _, err = s.Load(ctx)
	assert.True(t, common.IsCode(err, common.CodeDependency))
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(context.Background(), common.RedisConfig{}, nil)
	assert.True(t, common.IsCode(err, common.CodeValidation))
}
