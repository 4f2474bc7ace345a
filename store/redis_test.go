package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
)

func newRedisStore(t *testing.T, cfg ...RedisStoreConfig) (*RedisKVStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisKVStore(client, cfg...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisKVStore_RoundTrip(t *testing.T) {
	s, mr := newRedisStore(t)

	got, err := s.Get("u1", "jaat-mode12-history")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Set("u1", "jaat-mode12-history", `{"conversationHistory":[]}`))
	got, err = s.Get("u1", "jaat-mode12-history")
	require.NoError(t, err)
	assert.Equal(t, `{"conversationHistory":[]}`, got)
	assert.True(t, mr.Exists("jaat:u1:jaat-mode12-history"))

	require.NoError(t, s.Delete("u1", "jaat-mode12-history"))
	got, _ = s.Get("u1", "jaat-mode12-history")
	assert.Empty(t, got)
}

func TestRedisKVStore_ListKeysPerNamespace(t *testing.T) {
	s, _ := newRedisStore(t, RedisStoreConfig{Prefix: "test"})
	require.NoError(t, s.Set("u1", "b", "1"))
	require.NoError(t, s.Set("u1", "a", "1"))
	require.NoError(t, s.Set("u2", "c", "1"))

	keys, err := s.ListKeys("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	keys, err = s.ListKeys("nobody")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisKVStore_TTL(t *testing.T) {
	s, mr := newRedisStore(t, RedisStoreConfig{TTL: time.Minute})
	require.NoError(t, s.Set("u", "k", "v"))
	assert.Equal(t, time.Minute, mr.TTL("jaat:u:k"))

	mr.FastForward(2 * time.Minute)
	got, err := s.Get("u", "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisKVStore_BacksPreferenceStore(t *testing.T) {
	s, _ := newRedisStore(t)
	prefs := jaat.NewPreferenceStore(s, "u1")
	_, err := prefs.Merge("jaat-mode16-preferences", map[string]any{"userNickname": "Sam"})
	require.NoError(t, err)
	merged, err := prefs.Merge("jaat-mode16-preferences", map[string]any{"userBirthday": "1990-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "Sam", merged["userNickname"])
	assert.Equal(t, "1990-03-01", merged["userBirthday"])
}

func TestRedisKVStore_ServerDownSurfacesError(t *testing.T) {
	s, mr := newRedisStore(t, RedisStoreConfig{Timeout: 200 * time.Millisecond})
	mr.Close()
	_, err := s.Get("u", "k")
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set("u", "k", "v"))

	_, err = OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
