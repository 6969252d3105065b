package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-risk/internal/risk"
)

func TestKeyNormalizesModule(t *testing.T) {
	require.Equal(t, Key("s1", "42", "Analyse 1"), Key("s1", "42", "  analyse 1 "))
	require.NotEqual(t, Key("s1", "42", "Analyse 1"), Key("s2", "42", "Analyse 1"))
}

func TestMemoryTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewMemory(time.Minute, 10)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), got)

	got[0] = 'x'
	again, _, _ := c.Get(ctx, "k")
	require.Equal(t, []byte("v"), again)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestMemoryCapacity(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewMemory(time.Minute, 2)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	require.NoError(t, c.Set(ctx, "c", []byte("3")))
	_, ok, _ := c.Get(ctx, "c")
	require.False(t, ok, "full cache must not grow")

	// Overwriting an existing key is always allowed.
	require.NoError(t, c.Set(ctx, "a", []byte("9")))
	v, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, []byte("9"), v)

	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "c", []byte("3")))
	_, ok, _ = c.Get(ctx, "c")
	require.True(t, ok, "expired entries are swept to make room")

	require.NoError(t, c.Clear(ctx))
	require.Equal(t, 0, c.Len())
}

func TestPredictionRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute, 10)
	est := risk.Heuristic(risk.HeuristicInputs{MeanGrade: 8, StdGrade: 1, ModuleRate: 1, HasModule: true})
	p := risk.NewPrediction("42", "Analyse 1", est, 8)
	p.SnapshotID = "snap"

	key := Key("snap", "42", "Analyse 1")
	_, ok, err := GetPrediction(ctx, c, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, SetPrediction(ctx, c, key, p))
	got, ok, err := GetPrediction(ctx, c, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, p.Probability, got.Probability)
	require.Equal(t, p.Category, got.Category)
	require.Equal(t, p.Profile, got.Profile)
	require.False(t, got.UsingModel())
	require.Equal(t, est, got.Estimate)

	require.NoError(t, c.Set(ctx, "bad", []byte("{")))
	_, ok, err = GetPrediction(ctx, c, "bad")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, nil, Config{})
	require.NoError(t, err)
	require.IsType(t, &Memory{}, c)

	c, err = New(ctx, nil, Config{Kind: "none"})
	require.NoError(t, err)
	require.IsType(t, Noop{}, c)
	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	_, ok, _ := c.Get(ctx, "k")
	require.False(t, ok)

	_, err = New(ctx, nil, Config{Kind: "memcached"})
	require.Error(t, err)

	_, err = New(ctx, nil, Config{Kind: "redis"})
	require.Error(t, err)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, nil, Config{RedisAddr: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	key := Key("test", "1", "Analyse 1")
	require.NoError(t, c.Set(ctx, key, []byte("v")))
	v, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}
