package tos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tosctl/internal/models"
	"tosctl/internal/structures"
	"tosctl/internal/testutil"
)

const termsPayload = `{
	"version": "2025-03-01T00:00:00Z",
	"text": "terms text",
	"support": "https://example.com/support"
}`

type fetcherFixture struct {
	fetcher  *RemoteFetcher
	resolver *PathResolver
	memcache *testutil.MockCache
	metrics  *testutil.MockMetrics
	tokens   *TokenSetting
	conf     *structures.Config
}

func newFetcherFixture(t *testing.T) *fetcherFixture {
	t.Helper()
	conf := &structures.Config{
		Remote: structures.RemoteConfig{
			ConnectTimeout: 2 * time.Second,
			ReadTimeout:    2 * time.Second,
		},
	}
	resolver := NewCustomPathResolver(nil, t.TempDir())
	memcache := testutil.NewMockCache()
	metrics := testutil.NewMockMetrics()
	tokens := NewTokenSetting(conf)
	fetcher := NewRemoteFetcher(conf, resolver, memcache, metrics, &testutil.MockLogger{}, tokens)
	return &fetcherFixture{
		fetcher:  fetcher,
		resolver: resolver,
		memcache: memcache,
		metrics:  metrics,
		tokens:   tokens,
		conf:     conf,
	}
}

func termsServer(t *testing.T, status int, payload string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/main/"+Endpoint, r.URL.Path)
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestRemoteFetcher_FetchSuccess(t *testing.T) {
	fx := newFetcherFixture(t)
	server, hits := termsServer(t, http.StatusOK, termsPayload)
	channel := testChannel(t, server.URL+"/main")

	metadata, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "terms text", metadata.Text)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, fx.metrics.Fetches["ok"])

	// populated durable cache
	payload, err := os.ReadFile(fx.resolver.CachePath(channel))
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
}

func TestRemoteFetcher_SecondFetchServedFromCache(t *testing.T) {
	fx := newFetcherFixture(t)
	server, hits := termsServer(t, http.StatusOK, termsPayload)
	channel := testChannel(t, server.URL+"/main")

	_, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)
	metadata, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "terms text", metadata.Text)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRemoteFetcher_ZeroTimeoutDisablesCache(t *testing.T) {
	fx := newFetcherFixture(t)
	server, hits := termsServer(t, http.StatusOK, termsPayload)
	channel := testChannel(t, server.URL+"/main")

	for range 3 {
		_, err := fx.fetcher.Fetch(context.Background(), channel, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestRemoteFetcher_ExpiredCacheRefetches(t *testing.T) {
	fx := newFetcherFixture(t)
	server, hits := termsServer(t, http.StatusOK, termsPayload)
	channel := testChannel(t, server.URL+"/main")

	_, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)

	// age the cache file past the timeout and drop the memory layer
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(fx.resolver.CachePath(channel), old, old))
	fx.memcache.Del(fx.resolver.HashChannel(channel))

	_, err = fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRemoteFetcher_MissingEndpointCachesSentinel(t *testing.T) {
	fx := newFetcherFixture(t)
	server, hits := termsServer(t, http.StatusNotFound, "not found")
	channel := testChannel(t, server.URL+"/main")

	_, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	assert.True(t, errors.Is(err, ErrMissing))

	// the sentinel is an empty cache file
	payload, readErr := os.ReadFile(fx.resolver.CachePath(channel))
	require.NoError(t, readErr)
	assert.Empty(t, payload)

	// a fresh sentinel short-circuits without another request
	_, err = fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	assert.True(t, errors.Is(err, ErrMissing))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, fx.metrics.Fetches["missing"])
}

func TestRemoteFetcher_InvalidPayload(t *testing.T) {
	fx := newFetcherFixture(t)
	server, _ := termsServer(t, http.StatusOK, `{"version": "2025-03-01T00:00:00Z"}`)
	channel := testChannel(t, server.URL+"/main")

	_, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.True(t, errors.Is(err, ErrMissing))
	assert.Equal(t, 1, fx.metrics.Fetches["invalid"])
}

func TestRemoteFetcher_MalformedJSON(t *testing.T) {
	fx := newFetcherFixture(t)
	server, _ := termsServer(t, http.StatusOK, "<html>oops</html>")
	channel := testChannel(t, server.URL+"/main")

	_, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestRemoteFetcher_OfflineUsesStaleCache(t *testing.T) {
	fx := newFetcherFixture(t)
	server, hits := termsServer(t, http.StatusOK, termsPayload)
	channel := testChannel(t, server.URL+"/main")

	_, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)

	old := time.Now().Add(-240 * time.Hour)
	require.NoError(t, os.Chtimes(fx.resolver.CachePath(channel), old, old))
	fx.memcache.Del(fx.resolver.HashChannel(channel))
	fx.conf.Remote.Offline = true

	metadata, err := fx.fetcher.Fetch(context.Background(), channel, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "terms text", metadata.Text)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRemoteFetcher_TokenInjectionDisabledDuringFetch(t *testing.T) {
	fx := newFetcherFixture(t)
	fx.tokens.SetEnabled(true)

	var duringFetch atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		duringFetch.Store(fx.tokens.Enabled())
		w.Write([]byte(termsPayload))
	}))
	t.Cleanup(server.Close)

	_, err := fx.fetcher.Fetch(context.Background(), testChannel(t, server.URL+"/main"), 0)
	require.NoError(t, err)
	assert.False(t, duringFetch.Load())
	assert.True(t, fx.tokens.Enabled())
}

func TestRemoteFetcher_ZeroChannel(t *testing.T) {
	fx := newFetcherFixture(t)
	_, err := fx.fetcher.Fetch(context.Background(), models.Channel{}, time.Hour)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissing))
}

func TestEndpointURL(t *testing.T) {
	url, err := EndpointURL(testChannel(t, "https://repo.example.com/main"))
	require.NoError(t, err)
	assert.Equal(t, "https://repo.example.com/main/terms.json", url)
}

func TestEndpointURL_TokenCredentialsNeverSurvive(t *testing.T) {
	url, err := EndpointURL(testChannel(t, "https://repo.example.com/main?token=secret&access_token=s2&t=s3"))
	require.NoError(t, err)
	assert.Equal(t, "https://repo.example.com/main/terms.json", url)
	assert.NotContains(t, url, "secret")
}

func TestTokenSetting_FromConfig(t *testing.T) {
	tokens := NewTokenSetting(&structures.Config{
		Remote: structures.RemoteConfig{AddToken: true},
	})
	assert.True(t, tokens.Enabled())
	tokens.SetEnabled(false)
	assert.False(t, tokens.Enabled())
}
