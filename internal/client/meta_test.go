package client

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

func TestMetaPing(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("conduit.ping", "phab.example.com")

	client := newTestClient(t, fake)

	hostname, err := client.Meta().Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "phab.example.com", hostname)
}

func TestMetaGetCapabilities(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("conduit.getcapabilities", map[string]any{
		"authentication": []string{"token", "session"},
		"signatures":     []string{"consign"},
		"input":          []string{"json", "urlencoded"},
		"output":         []string{"json"},
	})

	client := newTestClient(t, fake)

	capabilities, err := client.Meta().GetCapabilities(context.Background())
	require.NoError(t, err)
	assert.Contains(t, capabilities.Authentication, "token")
	assert.Contains(t, capabilities.Input, "urlencoded")
}

func TestMetaConnectStatus(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.on("conduit.connect", func(form url.Values) (any, string, string) {
		assert.Equal(t, "conduit-client", form.Get("client"))
		assert.NotEmpty(t, form.Get("clientVersion"))

		return map[string]any{
			"connectionID": 8675309,
			"sessionKey":   "",
			"userPHID":     "PHID-USER-1",
		}, "", ""
	})

	client := newTestClient(t, fake)

	status, err := client.Meta().ConnectStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8675309), status.ConnectionID)
	assert.Equal(t, conduit.PHID("PHID-USER-1"), status.UserPHID)
}

func TestMetaQueryMethods(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("conduit.query", map[string]any{
		"maniphest.search": map[string]any{"description": "Search tasks."},
		"conduit.ping":     map[string]any{"description": "Basic ping."},
	})

	client := newTestClient(t, fake)

	methods, err := client.Meta().QueryMethods(context.Background())
	require.NoError(t, err)
	assert.Contains(t, methods, "maniphest.search")
	assert.Contains(t, methods, "conduit.ping")
}

func TestClientConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	assert.ErrorIs(t, err, conduit.ErrConfigRequired)

	_, err = New(context.Background(), &conduit.Config{})
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))

	_, err = New(context.Background(), &conduit.Config{
		APIURL: "https://phab.example.com/api/",
		Token:  "not-a-token",
	})
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))
}

func TestClientDisabledCache(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("conduit.ping", "phab.example.com")

	client := newTestClient(t, fake, func(config *conduit.Config) {
		config.Cache = &conduit.CacheConfig{Type: conduit.CacheTypeNone}
	})

	_, err := client.Meta().Ping(context.Background())
	require.NoError(t, err)

	_, err = client.Meta().Ping(context.Background())
	require.NoError(t, err)

	// Every read goes to the wire when caching is off.
	assert.Equal(t, 2, fake.callCount("conduit.ping"))
}

func TestClientUsesCacheOptionsTTL(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("conduit.ping", "phab.example.com")

	// No Config.CacheTTL, so the backend's own default TTL governs entry
	// lifetime. With a nanosecond TTL every entry is stale on arrival.
	client := newTestClient(t, fake, func(config *conduit.Config) {
		config.CacheTTL = 0
		config.Cache = &conduit.CacheConfig{
			Type:    conduit.CacheTypeMemory,
			Options: &conduit.CacheOptions{DefaultTTL: time.Nanosecond},
		}
	})

	ctx := context.Background()

	_, err := client.Meta().Ping(ctx)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = client.Meta().Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.callCount("conduit.ping"))
}

func TestClientClearCache(t *testing.T) {
	t.Parallel()

	fake := newFakeConduit(t)
	fake.result("conduit.ping", "phab.example.com")

	client := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.Meta().Ping(ctx)
	require.NoError(t, err)

	require.NoError(t, client.ClearCache(ctx))

	_, err = client.Meta().Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.callCount("conduit.ping"))
}
