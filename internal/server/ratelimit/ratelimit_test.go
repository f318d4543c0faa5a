package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a manually advanced time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(cfg *Config) (*Limiter, *clock) {
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l.now = c.now
	return l, c
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: 10 * time.Second})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("1.2.3.4", "/runs", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("1.2.3.4", "/runs", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.InDelta(t, float64(time.Second), float64(info.RetryAfter), float64(time.Millisecond))
}

func TestLimiter_Refill(t *testing.T) {
	l, c := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: 10 * time.Second})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		l.Allow("client", "/runs", "GET")
	}
	allowed, _ := l.Allow("client", "/runs", "GET")
	require.False(t, allowed)

	c.advance(1100 * time.Millisecond)
	allowed, _ = l.Allow("client", "/runs", "GET")
	assert.True(t, allowed, "one token refills per second")
	allowed, _ = l.Allow("client", "/runs", "GET")
	assert.False(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer l.Stop()

	allowed, _ := l.Allow("a", "/runs", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a", "/runs", "GET")
	assert.False(t, allowed)
	allowed, _ = l.Allow("b", "/runs", "GET")
	assert.True(t, allowed)
}

func TestLimiter_EndpointLimit(t *testing.T) {
	l, _ := newTestLimiter(DefaultConfig())
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("client", "/run", "POST")
		require.True(t, allowed, "burst request %d", i+1)
		assert.Equal(t, 30, info.Limit)
	}
	allowed, info := l.Allow("client", "/run", "POST")
	assert.False(t, allowed)
	assert.InDelta(t, float64(2*time.Minute), float64(info.RetryAfter), float64(time.Millisecond))

	allowed, _ = l.Allow("client", "/runs/abc", "GET")
	assert.True(t, allowed, "reads use their own bucket")
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("client", "/health", "GET")
		assert.True(t, allowed)
	}
	assert.Equal(t, 0, l.Size())
}

func TestLimiter_DisabledAndWhitelist(t *testing.T) {
	disabled, _ := newTestLimiter(&Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer disabled.Stop()
	for i := 0; i < 3; i++ {
		allowed, _ := disabled.Allow("client", "/run", "POST")
		assert.True(t, allowed)
	}

	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour, Whitelist: map[string]bool{"127.0.0.1": true}})
	defer l.Stop()
	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("127.0.0.1", "/runs", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l, c := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTimeout: time.Minute})
	defer l.Stop()

	l.Allow("old", "/runs", "GET")
	c.advance(2 * time.Minute)
	l.Allow("new", "/runs", "GET")
	require.Equal(t, 2, l.Size())

	l.Cleanup()
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("client", "/runs", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowedCount)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultConfig().Endpoints
	tests := []struct {
		path, method string
		want         string
	}{
		{"/run", "POST", "POST /run"},
		{"/run/stream", "POST", "POST /run/stream"},
		{"/runs/123/steps", "GET", "GET /runs/"},
		{"/runs", "GET", ""},
		{"/run", "GET", ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Method+" "+got.Path)
		})
	}
}

func TestStopTwice(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	l.Stop()
}
