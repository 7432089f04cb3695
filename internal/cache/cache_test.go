package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etlinspector/internal/config"
	"etlinspector/pkg/contracts/domain"
)

func TestKey(t *testing.T) {
	a := Key("abc", []string{"null_check", "duplicate_check"}, "v1")
	b := Key("abc", []string{"duplicate_check", "null_check"}, "v1")

	assert.True(t, strings.HasPrefix(a, "report:abc:"))
	assert.Len(t, strings.TrimPrefix(a, "report:abc:"), 16)
	assert.Equal(t, a, b, "check order is irrelevant")
	assert.NotEqual(t, a, Key("abc", []string{"null_check"}, "v1"))
	assert.NotEqual(t, a, Key("abc", []string{"null_check", "duplicate_check"}, "v2"))
	assert.NotEqual(t, a, Key("abd", []string{"null_check", "duplicate_check"}, "v1"))
}

func TestNew_DisabledIsNoop(t *testing.T) {
	c, err := New(context.Background(), config.CacheConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	_, ok, err := c.Get(context.Background(), "report:x:y")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Put(context.Background(), "k", domain.Report{}))
	assert.NoError(t, c.Ping(context.Background()))
}

func redisAddr() string {
	if addr := os.Getenv("ETL_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewRedis(ctx, config.CacheConfig{RedisAddr: redisAddr(), DB: 15, TTL: time.Minute}, nil)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()

	key := Key(uuid.NewString(), []string{"null_check"}, "test")
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := domain.Report{ID: "r-1", Source: "a.csv", Issues: []domain.Issue{{Check: "null_check", Column: "email"}}}
	require.NoError(t, c.Put(ctx, key, want))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Issues, got.Issues)

	ttl, err := c.client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.client.Set(ctx, key, "not json", time.Minute).Err())
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "corrupt entries read as misses")
}
