package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCmdable is an in-memory stand-in for the go-redis client.
type mockCmdable struct {
	data map[string]string
	err  error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: map[string]string{}}
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	v, ok := m.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.data[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "setnx", key)
	if _, ok := m.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	m.data[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisStore_GetSetDel(t *testing.T) {
	ctx := context.Background()
	store := &RedisStore{cmd: newMockCmdable()}

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := store.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Del(ctx, "k"))
	ok, err = store.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_ErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	mock.err = errors.New("connection reset")
	store := &RedisStore{cmd: mock}

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Contains(t, err.Error(), "failed to get k")

	err = store.Set(ctx, "k", "v", time.Minute)
	assert.Contains(t, err.Error(), "failed to set k")
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	store, err := NewRedisStore(context.Background(), "not-a-url")

	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "failed to parse redis url")
}

func TestRedisStore_CloseWithoutClient(t *testing.T) {
	store := &RedisStore{cmd: newMockCmdable()}
	assert.NoError(t, store.Close())
}
