package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/goccy/go-json"

	"tosctl/internal/models"
	"tosctl/internal/services"
	"tosctl/internal/structures"
	"tosctl/internal/testutil"
	"tosctl/internal/tos"
)

// stubFetcher serves canned remote documents keyed by base URL.
type stubFetcher struct {
	docs map[string]*models.RemoteMetadata
}

func (s *stubFetcher) Fetch(_ context.Context, channel models.Channel, _ time.Duration) (*models.RemoteMetadata, error) {
	if doc, ok := s.docs[channel.BaseURL()]; ok {
		return doc, nil
	}
	return nil, tos.NewMissingError(channel)
}

type appFixture struct {
	app     *App
	fetcher *stubFetcher
	store   *tos.LocalStore
	root    string
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

func newAppFixture(t *testing.T, channels ...string) *appFixture {
	t.Helper()
	root := t.TempDir()
	conf := &structures.Config{
		AppName:  "tosctl",
		Path:     "~/.config/tosctl/config.yaml",
		Channels: channels,
		Storage:  structures.StorageConfig{ToSRoot: root},
		Cache:    structures.CacheConfig{Timeout: time.Hour},
	}
	env := &structures.EnvContext{Interactive: true}
	logger := &testutil.MockLogger{}

	resolver := tos.NewCustomPathResolver([]string{root}, t.TempDir())
	store := tos.NewLocalStore(resolver, testutil.NewMockMetrics(), logger)
	fetcher := &stubFetcher{docs: make(map[string]*models.RemoteMetadata)}
	service := services.NewToSService(fetcher, store, resolver, logger)
	workflow := services.NewWorkflow(service, env, logger)

	app := NewApp(conf, env, logger, service, workflow)
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	app.printer = &ConsolePrinter{Out: out, Err: errOut}

	return &appFixture{app: app, fetcher: fetcher, store: store, root: root, out: out, errOut: errOut}
}

func (fx *appFixture) run(args ...string) error {
	fx.app.root.SetArgs(args)
	return fx.app.Execute()
}

func (fx *appFixture) publish(t *testing.T, raw string, version time.Time) models.Channel {
	t.Helper()
	channel, err := models.NewChannel(raw)
	require.NoError(t, err)
	fx.fetcher.docs[channel.BaseURL()] = &models.RemoteMetadata{
		Version: models.NewTimestamp(version),
		Text:    "terms text",
		Support: "https://example.com/support",
	}
	return channel
}

var testVersion = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestApp_AcceptCommand(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)

	require.NoError(t, fx.run("accept", "--channel", channel.BaseURL()))
	assert.Contains(t, fx.out.String(), "accepted Terms of Service for "+channel.BaseURL())

	pair, err := fx.store.Read(channel)
	require.NoError(t, err)
	assert.True(t, pair.Accepted())
}

func TestApp_RejectCommand(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)

	require.NoError(t, fx.run("reject", "--channel", channel.BaseURL()))

	pair, err := fx.store.Read(channel)
	require.NoError(t, err)
	assert.False(t, pair.Accepted())
}

func TestApp_AcceptMissingChannel(t *testing.T) {
	fx := newAppFixture(t)

	require.NoError(t, fx.run("accept", "--channel", "https://repo.example.com/main"))
	assert.Contains(t, fx.out.String(), "Terms of Service not found for https://repo.example.com/main")
}

func TestApp_ListDefaultCommand(t *testing.T) {
	fx := newAppFixture(t)
	decided := fx.publish(t, "https://repo.example.com/main", testVersion)
	require.NoError(t, fx.run("accept", "--channel", decided.BaseURL()))
	fx.out.Reset()

	require.NoError(t, fx.run(
		"--channel", decided.BaseURL(),
		"--channel", "https://exempt.example.com/r",
	))

	output := fx.out.String()
	assert.Contains(t, output, "Channel\tVersion\tAccepted\tSupport")
	assert.Contains(t, output, decided.BaseURL())
	assert.Contains(t, output, "accepted")
	assert.Contains(t, output, "https://exempt.example.com/r\t-\t-\t-")
	assert.NotContains(t, fx.errOut.String(), "outdated")
}

func TestApp_ListMarksOutdated(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)
	require.NoError(t, fx.run("accept", "--channel", channel.BaseURL()))
	fx.out.Reset()

	// a newer document supersedes the stored decision
	fx.publish(t, channel.BaseURL(), testVersion.Add(24*time.Hour))
	require.NoError(t, fx.run("--channel", channel.BaseURL()))

	assert.Contains(t, fx.out.String(), "*")
	assert.Contains(t, fx.errOut.String(), "outdated")
}

func TestApp_ListJSON(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)

	require.NoError(t, fx.run("--json", "--channel", channel.BaseURL()))

	var output map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(fx.out.Bytes(), &output))
	assert.Contains(t, output, channel.BaseURL())
}

func TestApp_ViewCommand(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)

	require.NoError(t, fx.run("view", "--channel", channel.BaseURL()))
	assert.Contains(t, fx.out.String(), "terms text")
}

func TestApp_InteractiveAutoAccept(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)

	require.NoError(t, fx.run("interactive", "--auto-accept", "--channel", channel.BaseURL()))

	pair, err := fx.store.Read(channel)
	require.NoError(t, err)
	assert.True(t, pair.Accepted())
}

func TestApp_InfoCommand(t *testing.T) {
	fx := newAppFixture(t)

	require.NoError(t, fx.run("info"))
	assert.Contains(t, fx.out.String(), "Search path:")
	assert.Contains(t, fx.out.String(), "Cache dir:")
}

func TestApp_InfoJSON(t *testing.T) {
	fx := newAppFixture(t)

	require.NoError(t, fx.run("info", "--json"))

	var output map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(fx.out.Bytes(), &output))
	assert.Contains(t, output, "search_path")
	assert.Contains(t, output, "cache_dir")
}

func TestApp_CleanRequiresTarget(t *testing.T) {
	fx := newAppFixture(t)
	assert.Error(t, fx.run("clean"))
}

func TestApp_CleanToS(t *testing.T) {
	fx := newAppFixture(t)
	channel := fx.publish(t, "https://repo.example.com/main", testVersion)
	require.NoError(t, fx.run("accept", "--channel", channel.BaseURL()))
	fx.out.Reset()

	require.NoError(t, fx.run("clean", "--all", "--tos-root", fx.root))
	assert.Contains(t, fx.out.String(), "1 file(s) removed")

	_, err := fx.store.Read(channel)
	assert.ErrorIs(t, err, tos.ErrMissing)
}

func TestApp_NoChannelsConfigured(t *testing.T) {
	fx := newAppFixture(t)
	err := fx.run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--channel")
}

func TestApp_ConfiguredChannelsMergeWithFlags(t *testing.T) {
	fx := newAppFixture(t, "https://conf.example.com/main")
	fx.app.flagChannels = []string{"https://flag.example.com/main", "https://conf.example.com/main"}

	channels, err := fx.app.channels()
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "https://conf.example.com/main", channels[0].BaseURL())
	assert.Equal(t, "https://flag.example.com/main", channels[1].BaseURL())
}

func TestApp_LocationFlagsMutuallyExclusive(t *testing.T) {
	fx := newAppFixture(t)
	assert.Error(t, fx.run("info", "--site", "--user"))
}

func TestApp_TosRootResolution(t *testing.T) {
	fx := newAppFixture(t)
	assert.Equal(t, fx.root, fx.app.tosRoot())

	fx.app.flagSite = true
	assert.Equal(t, tos.SiteToSRoot, fx.app.tosRoot())
	fx.app.flagSite = false

	fx.app.flagUser = true
	assert.Equal(t, tos.UserToSRoot, fx.app.tosRoot())
	fx.app.flagUser = false

	fx.app.flagToSRoot = "/custom/root"
	assert.Equal(t, "/custom/root", fx.app.tosRoot())
}

func TestApp_CacheTimeout(t *testing.T) {
	fx := newAppFixture(t)
	assert.Equal(t, time.Hour, fx.app.cacheTimeout())

	fx.app.flagIgnoreCache = true
	assert.Equal(t, time.Duration(0), fx.app.cacheTimeout())
}
