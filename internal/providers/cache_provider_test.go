package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tosctl/internal/structures"
)

// local mock logger to avoid import cycle with testutil
type providerTestLogger struct{}

func (m *providerTestLogger) Errorf(_ TypeEnum, _ string, _ ...interface{}) {}
func (m *providerTestLogger) Warnf(_ TypeEnum, _ string, _ ...interface{})  {}
func (m *providerTestLogger) Debugf(_ TypeEnum, _ string, _ ...interface{}) {}
func (m *providerTestLogger) Infof(_ TypeEnum, _ string, _ ...interface{})  {}
func (m *providerTestLogger) Fatalf(_ TypeEnum, _ string, _ ...interface{}) {}
func (m *providerTestLogger) Close()                                        {}

func cacheConfig(enabled bool, size int, timeout time.Duration) *structures.Config {
	return &structures.Config{
		Cache: structures.CacheConfig{
			Enabled: enabled,
			Size:    size,
			Timeout: timeout,
		},
	}
}

func TestCacheProvider_DisabledReturnsNoop(t *testing.T) {
	c := NewCacheProvider(cacheConfig(false, 8, time.Hour), &providerTestLogger{})
	_, ok := c.Get("any")
	assert.False(t, ok)
	assert.IsType(t, &noopCache{}, c)
}

func TestCacheProvider_ZeroSizeReturnsNoop(t *testing.T) {
	c := NewCacheProvider(cacheConfig(true, 0, time.Hour), &providerTestLogger{})
	assert.IsType(t, &noopCache{}, c)
}

func TestCacheProvider_SetGet(t *testing.T) {
	c := NewCacheProvider(cacheConfig(true, 1, time.Hour), &providerTestLogger{})
	assert.IsType(t, &CacheProvider{}, c)

	c.Set("channel-hash", []byte(`{"version":"2025-03-01T00:00:00Z"}`))
	val, ok := c.Get("channel-hash")
	assert.True(t, ok)
	assert.Equal(t, `{"version":"2025-03-01T00:00:00Z"}`, string(val))
}

func TestCacheProvider_GetMissing(t *testing.T) {
	c := NewCacheProvider(cacheConfig(true, 1, time.Hour), &providerTestLogger{})
	_, ok := c.Get("unknown")
	assert.False(t, ok)
}

func TestCacheProvider_Del(t *testing.T) {
	c := NewCacheProvider(cacheConfig(true, 1, time.Hour), &providerTestLogger{})
	c.Set("key", []byte("value"))
	c.Del("key")
	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestNoopCache_AlwaysMisses(t *testing.T) {
	c := &noopCache{}
	c.Set("key", []byte("value"))
	val, ok := c.Get("key")
	assert.False(t, ok)
	assert.Nil(t, val)
	c.Del("key")
}

func TestUnsafeStringToBytes(t *testing.T) {
	assert.Nil(t, unsafeStringToBytes(""))
	assert.Equal(t, []byte("abc"), unsafeStringToBytes("abc"))
}
