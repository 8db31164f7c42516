package apiclient

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCache_ExpiryAndClone(t *testing.T) {
	clock := newFakeClock()
	c := newResponseCache(clock.Now)

	key := cacheKey("GET", "http://x/api/v1/clients", nil)
	c.set(key, &Response{Data: json.RawMessage(`{"a":1}`), Success: true}, time.Minute, nil)

	got, ok := c.get(key)
	require.True(t, ok)
	got.Data[0] = 'X'

	again, ok := c.get(key)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(again.Data), "callers get copies")

	clock.Advance(time.Minute)
	_, ok = c.get(key)
	assert.True(t, ok, "exactly at ttl is still fresh")

	clock.Advance(time.Nanosecond)
	_, ok = c.get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.len(), "expired entry evicted on lookup")
}

func TestResponseCache_ZeroTTLNotStored(t *testing.T) {
	c := newResponseCache(time.Now)
	c.set("k", &Response{}, 0, nil)
	assert.Equal(t, 0, c.len())
}

func TestResponseCache_TagIgnoresTTL(t *testing.T) {
	clock := newFakeClock()
	c := newResponseCache(clock.Now)
	c.set("a", &Response{}, time.Hour, []string{"clients"})
	c.set("b", &Response{}, time.Second, []string{"clients", "reports"})
	c.set("c", &Response{}, time.Hour, []string{"reports"})

	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, c.invalidateTag("clients"))
	assert.Equal(t, 1, c.len())
}

func TestResponseCache_SetSweepsExpired(t *testing.T) {
	clock := newFakeClock()
	c := newResponseCache(clock.Now)
	for i := 0; i < 5; i++ {
		c.set(cacheKey("GET", fmt.Sprintf("http://x/api/v1/reports/r%d", i), nil), &Response{}, time.Second, nil)
	}
	c.set("long", &Response{}, time.Hour, nil)
	require.Equal(t, 6, c.len())

	clock.Advance(2 * time.Second)
	c.set("fresh", &Response{}, time.Minute, nil)

	assert.Equal(t, 2, c.len(), "only unexpired entries survive")
	_, ok := c.get("long")
	assert.True(t, ok)
}

func TestCacheKey_BodySensitive(t *testing.T) {
	a := cacheKey("GET", "http://x/a", []byte(`{"q":1}`))
	b := cacheKey("GET", "http://x/a", []byte(`{"q":2}`))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cacheKey("GET", "http://x/a", []byte(`{"q":1}`)))
}

func TestSlidingWindow(t *testing.T) {
	clock := newFakeClock()
	w := newSlidingWindow(2, 10*time.Second, clock.Now)

	assert.True(t, w.allow("/a"))
	clock.Advance(5 * time.Second)
	assert.True(t, w.allow("/a"))
	assert.False(t, w.allow("/a"))
	assert.True(t, w.allow("/b"))

	clock.Advance(5 * time.Second)
	assert.True(t, w.allow("/a"), "first call left the window")
	assert.False(t, w.allow("/a"))

	w.reset()
	assert.True(t, w.allow("/a"))

	unlimited := newSlidingWindow(-1, time.Second, clock.Now)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.allow("/a"))
	}
}

func TestSlidingWindow_ForgetsIdleEndpoints(t *testing.T) {
	clock := newFakeClock()
	w := newSlidingWindow(5, 10*time.Second, clock.Now)
	for i := 0; i < 20; i++ {
		require.True(t, w.allow(fmt.Sprintf("/reports/r%d", i)))
	}
	require.Equal(t, 20, w.len())

	clock.Advance(11 * time.Second)
	require.True(t, w.allow("/clients"))

	assert.Equal(t, 1, w.len())
}
