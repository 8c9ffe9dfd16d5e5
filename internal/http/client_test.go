package http_test

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conduithttp "github.com/phorge-tools/conduit-client/internal/http"
	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// staticTokens is a fixed-credential TokenSource for testing.
type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) Token(context.Context) (string, error) {
	return s.token, s.err
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	logs []string
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.logs = append(l.logs, msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.logs = append(l.logs, msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.logs = append(l.logs, msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.logs = append(l.logs, msg) }

func writeResult(t *testing.T, writer nethttp.ResponseWriter, result any) {
	t.Helper()

	err := json.NewEncoder(writer).Encode(map[string]any{
		"result":     result,
		"error_code": nil,
		"error_info": nil,
	})
	require.NoError(t, err)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_CallMethod(t *testing.T) {
	t.Parallel()
	t.Run("successful call", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, request *nethttp.Request) {
			assert.Equal(t, "/api/conduit.ping", request.URL.Path)
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))

			require.NoError(t, request.ParseForm())
			assert.Equal(t, "api-abcdefghijklmnopqrstuvwxyz12", request.PostForm.Get("api.token"))

			writeResult(t, writer, "phab.example.com")
		}))
		defer server.Close()

		client := conduithttp.NewClient(server.URL+"/api/", &staticTokens{token: "api-abcdefghijklmnopqrstuvwxyz12"})

		resp, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var hostname string

		require.NoError(t, resp.Decode(&hostname))
		assert.Equal(t, "phab.example.com", hostname)
	})

	t.Run("forwards form parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, request *nethttp.Request) {
			require.NoError(t, request.ParseForm())
			assert.Equal(t, "open", request.PostForm.Get("constraints[statuses][0]"))
			assert.Equal(t, "10", request.PostForm.Get("limit"))

			writeResult(t, writer, map[string]any{"data": []any{}})
		}))
		defer server.Close()

		client := conduithttp.NewClient(server.URL+"/api/", &staticTokens{token: "api-abcdefghijklmnopqrstuvwxyz12"})

		params := url.Values{}
		params.Set("constraints[statuses][0]", "open")
		params.Set("limit", "10")

		_, err := client.CallMethod(context.Background(), "maniphest.search", params)
		require.NoError(t, err)
	})

	t.Run("header auth mode", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, request *nethttp.Request) {
			assert.Equal(t, "Bearer api-abcdefghijklmnopqrstuvwxyz12", request.Header.Get("Authorization"))

			require.NoError(t, request.ParseForm())
			assert.Empty(t, request.PostForm.Get("api.token"))

			writeResult(t, writer, "ok")
		}))
		defer server.Close()

		client := conduithttp.NewClient(
			server.URL+"/api/",
			&staticTokens{token: "api-abcdefghijklmnopqrstuvwxyz12"},
			conduithttp.WithHeaderAuth(true),
		)

		_, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.NoError(t, err)
	})

	t.Run("envelope error becomes RemoteError", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			// Conduit reports failures inside a 200 response.
			err := json.NewEncoder(writer).Encode(map[string]any{
				"result":     nil,
				"error_code": "ERR-CONDUIT-CORE",
				"error_info": "Monogram \"T999999\" does not identify a valid object.",
			})
			require.NoError(t, err)
		}))
		defer server.Close()

		client := conduithttp.NewClient(server.URL+"/api/", nil)

		_, err := client.CallMethod(context.Background(), "maniphest.search", nil)
		require.Error(t, err)

		var remoteErr *conduit.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "ERR-CONDUIT-CORE", remoteErr.ConduitCode)
	})

	t.Run("invalid token becomes AuthError", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			err := json.NewEncoder(writer).Encode(map[string]any{
				"result":     nil,
				"error_code": "ERR-INVALID-AUTH",
				"error_info": "API token is not valid.",
			})
			require.NoError(t, err)
		}))
		defer server.Close()

		client := conduithttp.NewClient(server.URL+"/api/", &staticTokens{token: "api-abcdefghijklmnopqrstuvwxyz12"})

		_, err := client.CallMethod(context.Background(), "user.whoami", nil)
		require.Error(t, err)
		assert.True(t, conduit.IsAuthError(err))
	})

	t.Run("token source failure aborts before the network", func(t *testing.T) {
		t.Parallel()

		client := conduithttp.NewClient("http://127.0.0.1:0/api/", &staticTokens{err: errors.New("no token configured")})

		_, err := client.CallMethod(context.Background(), "user.whoami", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no token configured")
	})

	t.Run("debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			writeResult(t, writer, "ok")
		}))
		defer server.Close()

		logger := &recordingLogger{}
		client := conduithttp.NewClient(
			server.URL+"/api/",
			nil,
			conduithttp.WithLogger(logger),
			conduithttp.WithDebug(true),
		)

		_, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.NoError(t, err)

		require.Len(t, logger.logs, 2)
		assert.Equal(t, "Conduit request", logger.logs[0])
		assert.Equal(t, "Conduit response", logger.logs[1])
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			attempts++
			if attempts < 3 {
				writer.WriteHeader(nethttp.StatusInternalServerError)

				return
			}

			writeResult(t, writer, "ok")
		}))
		defer server.Close()

		client := conduithttp.NewClient(
			server.URL+"/api/",
			nil,
			conduithttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond),
		)

		resp, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 3, attempts)
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			attempts++
			if attempts < 3 {
				writer.WriteHeader(nethttp.StatusTooManyRequests)

				return
			}

			writeResult(t, writer, "ok")
		}))
		defer server.Close()

		client := conduithttp.NewClient(
			server.URL+"/api/",
			nil,
			conduithttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond),
		)

		resp, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 3, attempts)
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			attempts++

			writer.WriteHeader(nethttp.StatusBadRequest)
		}))
		defer server.Close()

		client := conduithttp.NewClient(
			server.URL+"/api/",
			nil,
			conduithttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond),
		)

		_, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.Error(t, err)
		assert.Equal(t, 1, attempts)

		var remoteErr *conduit.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, 400, remoteErr.StatusCode)
	})

	t.Run("exhausted retry budget", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(nethttp.HandlerFunc(func(writer nethttp.ResponseWriter, _ *nethttp.Request) {
			attempts++

			writer.WriteHeader(nethttp.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := conduithttp.NewClient(
			server.URL+"/api/",
			nil,
			conduithttp.WithRetryConfig(2, 10*time.Millisecond, 50*time.Millisecond),
		)

		_, err := client.CallMethod(context.Background(), "conduit.ping", nil)
		require.Error(t, err)
		assert.Equal(t, 3, attempts)

		var exhausted *conduit.RetryExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)

		// The last observed failure is preserved for classification.
		var remoteErr *conduit.RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, 503, remoteErr.StatusCode)
	})
}

func TestJitterBackoff(t *testing.T) {
	t.Parallel()

	waitMin := 1 * time.Second
	waitMax := 10 * time.Second

	t.Run("waits stay within the configured window", func(t *testing.T) {
		t.Parallel()

		for attempt := range 8 {
			wait := conduithttp.JitterBackoff(waitMin, waitMax, attempt, nil)
			assert.GreaterOrEqual(t, wait, waitMin, "attempt %d", attempt)
			assert.LessOrEqual(t, wait, waitMax, "attempt %d", attempt)
		}
	})

	t.Run("successive waits grow toward the ceiling", func(t *testing.T) {
		t.Parallel()

		// The jittered wait for attempt n lives in [2^(n-1)*min, 2^n*min],
		// so the floor for a late attempt exceeds the ceiling of an early one.
		early := conduithttp.JitterBackoff(waitMin, waitMax, 0, nil)
		late := conduithttp.JitterBackoff(waitMin, waitMax, 3, nil)
		assert.Greater(t, late, early)
	})

	t.Run("waits are not deterministic", func(t *testing.T) {
		t.Parallel()

		seen := make(map[time.Duration]struct{})
		for range 64 {
			seen[conduithttp.JitterBackoff(waitMin, waitMax, 2, nil)] = struct{}{}
		}

		// 64 draws from a 2-second window collide into one value only if
		// there is no jitter at all.
		assert.Greater(t, len(seen), 1)
	})

	t.Run("retry-after header wins", func(t *testing.T) {
		t.Parallel()

		resp := &nethttp.Response{
			StatusCode: nethttp.StatusTooManyRequests,
			Header:     nethttp.Header{"Retry-After": []string{"3"}},
		}

		assert.Equal(t, 3*time.Second, conduithttp.JitterBackoff(waitMin, waitMax, 0, resp))
	})
}
