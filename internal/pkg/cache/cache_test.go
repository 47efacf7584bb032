package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSetGetDelete(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("greeting", "hello", time.Minute))

	val, err := c.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", val)

	require.NoError(t, c.Delete("greeting"))
	_, err = c.Get("greeting")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestGetInt(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("count", 42, time.Minute))
	n, err := c.GetInt("count")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDeleteByPattern(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("affiliate:stats:1:all", "a", time.Minute))
	require.NoError(t, c.Set("affiliate:stats:1:range", "b", time.Minute))
	require.NoError(t, c.Set("affiliate:stats:2:all", "c", time.Minute))

	deleted, err := c.DeleteByPattern("affiliate:stats:1:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = c.Get("affiliate:stats:1:all")
	assert.ErrorIs(t, err, redis.Nil)

	val, err := c.Get("affiliate:stats:2:all")
	require.NoError(t, err)
	assert.Equal(t, "c", val)
}

func TestJSONRoundTrip(t *testing.T) {
	c := newTestCache(t)

	type stats struct {
		Clicks  int64   `json:"clicks"`
		Revenue float64 `json:"revenue"`
	}

	require.NoError(t, c.SetJSON("stats", stats{Clicks: 10, Revenue: 12.5}, time.Minute))

	var got stats
	require.NoError(t, c.GetJSON("stats", &got))
	assert.Equal(t, int64(10), got.Clicks)
	assert.Equal(t, 12.5, got.Revenue)

	var missing stats
	assert.ErrorIs(t, c.GetJSON("absent", &missing), redis.Nil)
}
