package phabclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
	"github.com/phorge-tools/conduit-client/pkg/phabclient"
)

const testToken = "api-abcdefghijklmnopqrstuvwxyz12"

func TestNew(t *testing.T) {
	// No t.Parallel: the dev-mode subtest uses t.Setenv, which is
	// incompatible with a parallel ancestor.
	t.Run("creates client with config", func(t *testing.T) {
		t.Parallel()

		config := &conduit.Config{
			APIURL: "https://phab.example.com/api/",
			Token:  testToken,
		}

		client, err := phabclient.New(context.Background(), config)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("rejects nil config", func(t *testing.T) {
		t.Parallel()

		_, err := phabclient.New(context.Background(), nil)
		assert.ErrorIs(t, err, conduit.ErrConfigRequired)
	})

	t.Run("rejects insecure TLS outside dev mode", func(t *testing.T) {
		// No t.Parallel: the dev-mode check reads the environment.
		t.Setenv("CONDUIT_DEV_MODE", "")

		_, err := phabclient.New(context.Background(), &conduit.Config{
			APIURL:        "https://phab.example.com/api/",
			SkipTLSVerify: true,
		})
		assert.ErrorIs(t, err, conduit.ErrSkipTLSOnlyInDev)
	})
}

func TestNewWithEndpoint(t *testing.T) {
	t.Parallel()

	client, err := phabclient.NewWithEndpoint(context.Background(), "phab.example.com")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewWithToken(t *testing.T) {
	t.Parallel()

	client, err := phabclient.NewWithToken(context.Background(), "https://phab.example.com", testToken)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewWithTokenRejectsMalformedToken(t *testing.T) {
	t.Parallel()

	_, err := phabclient.NewWithToken(context.Background(), "https://phab.example.com", "not-a-token")
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))
}

func TestNewFromArcRC(t *testing.T) {
	t.Parallel()

	arcRCPath := filepath.Join(t.TempDir(), ".arcrc")
	contents := `{"hosts": {"https://phab.example.com/api/": {"token": "` + testToken + `"}}}`
	require.NoError(t, os.WriteFile(arcRCPath, []byte(contents), 0o600))

	client, err := phabclient.NewFromArcRC(context.Background(), "phab.example.com", arcRCPath)
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = phabclient.NewFromArcRC(context.Background(), "https://other.example.com", arcRCPath)
	require.Error(t, err)
	assert.Equal(t, conduit.ErrorCodeValidation, conduit.CodeOf(err))
}

func TestClientIntegration(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/conduit.ping":
			_ = json.NewEncoder(writer).Encode(map[string]any{
				"result":     "phab.example.com",
				"error_code": nil,
				"error_info": nil,
			})
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := phabclient.NewWithToken(context.Background(), server.URL, testToken)
	require.NoError(t, err)

	hostname, err := client.Meta().Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "phab.example.com", hostname)
}
