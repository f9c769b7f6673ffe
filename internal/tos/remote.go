package tos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzhttp"

	"tosctl/internal/models"
	"tosctl/internal/providers"
	"tosctl/internal/structures"
)

// Endpoint is the well-known Terms of Service document name, resolved
// relative to a channel's base URL.
const Endpoint = "terms.json"

// CacheForever keeps the endpoint cache fresh indefinitely. Used in offline
// mode so cached documents never expire.
const CacheForever time.Duration = math.MaxInt64

// maxBodySize bounds the endpoint response size.
const maxBodySize = 8 << 20

// TokenSetting is the host session's token-injection toggle. Fetches
// disable it for the duration of the call and restore it afterwards.
type TokenSetting struct {
	mu      sync.Mutex
	enabled bool
}

func NewTokenSetting(conf *structures.Config) *TokenSetting {
	return &TokenSetting{enabled: conf.Remote.AddToken}
}

func (t *TokenSetting) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *TokenSetting) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// RemoteFetcherInterface is the fetch capability the reconciliation engine
// requires.
type RemoteFetcherInterface interface {
	Fetch(ctx context.Context, channel models.Channel, cacheTimeout time.Duration) (*models.RemoteMetadata, error)
}

// RemoteFetcher retrieves Terms of Service documents over HTTP with a
// read-through, time-boxed cache per channel: an in-process layer for
// repeated reconciliations within one invocation and a durable file layer
// keyed by modification time.
//
// The file cache has three states: absent (fetch), empty (a negative
// sentinel recording a confirmed "no Terms of Service" outcome), and
// populated (the raw endpoint JSON).
type RemoteFetcher struct {
	conf     *structures.Config
	resolver *PathResolver
	client   *http.Client
	memcache providers.CacheProviderInterface
	metrics  providers.MetricsProviderInterface
	logger   providers.Logger
	tokens   *TokenSetting
}

func NewRemoteFetcher(
	conf *structures.Config,
	resolver *PathResolver,
	memcache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
	tokens *TokenSetting,
) *RemoteFetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: conf.Remote.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: conf.Remote.ReadTimeout,
	}
	return &RemoteFetcher{
		conf:     conf,
		resolver: resolver,
		client: &http.Client{
			Transport: gzhttp.Transport(transport),
			Timeout:   conf.Remote.ConnectTimeout + conf.Remote.ReadTimeout,
		},
		memcache: memcache,
		metrics:  metrics,
		logger:   logger,
		tokens:   tokens,
	}
}

// Fetch returns the current Terms of Service document for the channel.
// A cacheTimeout of zero disables caching; CacheForever never expires it.
// Returns a MissingError when the channel has no document, an error
// matching ErrInvalid when a payload violates the schema, and a
// PermissionError when a cache path cannot be read or written.
func (f *RemoteFetcher) Fetch(ctx context.Context, channel models.Channel, cacheTimeout time.Duration) (*models.RemoteMetadata, error) {
	if channel.IsZero() {
		return nil, fmt.Errorf("channel must have a base URL")
	}
	if f.conf.Remote.Offline {
		cacheTimeout = CacheForever
	}

	key := f.resolver.HashChannel(channel)
	if cacheTimeout != 0 {
		if payload, ok := f.memcache.Get(key); ok {
			return f.decodeCached(channel, payload)
		}

		path, fresh, err := f.freshCachePath(channel, cacheTimeout)
		if err != nil {
			return nil, err
		}
		if fresh {
			payload, err := os.ReadFile(path)
			switch {
			case errors.Is(err, fs.ErrPermission):
				return nil, NewPermissionError(path, channel, err)
			case err == nil:
				f.metrics.IncCacheHits(providers.CacheLayerFile)
				payload = bytes.TrimSpace(payload)
				f.memcache.Set(key, payload)
				return f.decodeCached(channel, payload)
			}
			// cache file vanished between stat and read; fall through
		}
		f.metrics.IncCacheMisses(providers.CacheLayerFile)
	}

	return f.fetchAndCache(ctx, channel, key)
}

// decodeCached interprets a cached payload. An empty payload is the
// negative sentinel and resolves to a MissingError without parsing.
func (f *RemoteFetcher) decodeCached(channel models.Channel, payload []byte) (*models.RemoteMetadata, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, NewMissingError(channel)
	}
	var metadata models.RemoteMetadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		f.logger.Warnf(providers.TypeRemote, "Invalid cached metadata for %s: %s", channel, err)
		return nil, NewInvalidError(channel)
	}
	if err := metadata.Validate(); err != nil {
		f.logger.Warnf(providers.TypeRemote, "Invalid cached metadata for %s: %s", channel, err)
		return nil, NewInvalidError(channel)
	}
	return &metadata, nil
}

// freshCachePath reports whether the channel's cache file exists and is
// younger than cacheTimeout.
func (f *RemoteFetcher) freshCachePath(channel models.Channel, cacheTimeout time.Duration) (string, bool, error) {
	path := f.resolver.CachePath(channel)
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return path, false, nil
	case errors.Is(err, fs.ErrPermission):
		return path, false, NewPermissionError(path, channel, err)
	case err != nil:
		return path, false, err
	}
	if cacheTimeout != CacheForever && time.Since(info.ModTime()) >= cacheTimeout {
		return path, false, nil
	}
	return path, true, nil
}

func (f *RemoteFetcher) fetchAndCache(ctx context.Context, channel models.Channel, key string) (*models.RemoteMetadata, error) {
	start := time.Now()
	payload, err := f.fetchEndpoint(ctx, channel)
	f.metrics.ObserveFetchDuration(time.Since(start))
	if err != nil {
		// confirmed "no document": record the sentinel so repeated
		// offline or low-timeout calls do not re-hit the network
		f.logger.Debugf(providers.TypeRemote, "No Terms of Service endpoint for %s: %s", channel, err)
		f.metrics.IncFetchesTotal(providers.FetchMissing)
		if cacheErr := f.writeCache(channel, nil); cacheErr != nil {
			return nil, cacheErr
		}
		f.memcache.Set(key, nil)
		return nil, NewMissingError(channel)
	}

	var metadata models.RemoteMetadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		f.metrics.IncFetchesTotal(providers.FetchInvalid)
		if cacheErr := f.writeCache(channel, nil); cacheErr != nil {
			return nil, cacheErr
		}
		return nil, NewInvalidError(channel)
	}
	if err := metadata.Validate(); err != nil {
		f.metrics.IncFetchesTotal(providers.FetchInvalid)
		if cacheErr := f.writeCache(channel, nil); cacheErr != nil {
			return nil, cacheErr
		}
		return nil, NewInvalidError(channel)
	}

	f.metrics.IncFetchesTotal(providers.FetchOK)
	if err := f.writeCache(channel, payload); err != nil {
		return nil, err
	}
	f.memcache.Set(key, payload)
	return &metadata, nil
}

// fetchEndpoint performs the HTTP call. Token injection is disabled for the
// duration of the call and restored regardless of outcome.
func (f *RemoteFetcher) fetchEndpoint(ctx context.Context, channel models.Channel) ([]byte, error) {
	endpoint, err := EndpointURL(channel)
	if err != nil {
		return nil, err
	}

	saved := f.tokens.Enabled()
	f.tokens.SetEnabled(false)
	defer f.tokens.SetEnabled(saved)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint returned %s", resp.Status)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// EndpointURL builds the unauthenticated document URL for a channel.
// Channel normalization already drops query parameters, so token
// credentials in a raw channel URL never reach the endpoint request.
func EndpointURL(channel models.Channel) (string, error) {
	u, err := url.Parse(channel.BaseURL())
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", channel.BaseURL(), err)
	}
	u.Path = u.Path + "/" + Endpoint
	return u.String(), nil
}

// writeCache persists the raw payload to the channel's cache file; a nil
// payload writes the empty negative sentinel. The write goes through a temp
// file and rename so readers never observe a torn file.
func (f *RemoteFetcher) writeCache(channel models.Channel, payload []byte) error {
	path := f.resolver.CachePath(channel)
	if err := os.MkdirAll(f.resolver.CacheDir(), 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return NewPermissionError(path, channel, err)
		}
		return err
	}
	if err := atomicWrite(path, payload, 0o644); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return NewPermissionError(path, channel, err)
		}
		return err
	}
	return nil
}
