package redisdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optileno-backend/internal/config"
)

func TestNewClient_BasicConfig(t *testing.T) {
	cfg := &config.Config{RedisAddr: "localhost:6379", RedisDB: 15}

	client := NewClient(cfg)
	require.NotNil(t, client)
	t.Cleanup(func() { client.Close() })

	opts := client.Options()
	assert.Equal(t, cfg.RedisAddr, opts.Addr)
	assert.Equal(t, "", opts.Password)
	assert.Equal(t, 15, opts.DB)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := &memCache{}
	type payload struct {
		Score float64 `json:"score"`
	}

	var got payload
	ok, err := GetJSON(ctx, c, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, "k", payload{Score: 42}, time.Minute))
	ok, err = GetJSON(ctx, c, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42.0, got.Score)

	require.NoError(t, c.Set(ctx, "bad", []byte("{"), time.Minute))
	ok, err = GetJSON(ctx, c, "bad", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNopCache(t *testing.T) {
	ctx := context.Background()
	var c Cache = NopCache{}

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "user:7:goals:analysis", UserKey(7, "goals:analysis"))
}

func TestInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := &memCache{}
	require.NoError(t, c.Set(ctx, UserKey(1, KeyMetrics), []byte("{}"), 0))
	require.NoError(t, c.Set(ctx, UserKey(1, KeyGoalAnalysis), []byte("{}"), 0))
	require.NoError(t, c.Set(ctx, UserKey(2, KeyMetrics), []byte("{}"), 0))

	require.NoError(t, InvalidateUser(ctx, c, 1))

	assert.Len(t, c.data, 1)
	_, ok := c.data[UserKey(2, KeyMetrics)]
	assert.True(t, ok)
}
