package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

// TestToken is a well-formed Conduit token for tests.
const TestToken = "api-abcdefghijklmnopqrstuvwxyz12"

// methodHandler serves one Conduit method. Returning a non-empty errCode
// produces a Conduit-level error envelope.
type methodHandler func(form url.Values) (result any, errCode, errInfo string)

// fakeConduit is an in-process Conduit endpoint. Handlers are registered per
// method; every invocation is counted so tests can assert on cache behavior.
type fakeConduit struct {
	mu       sync.Mutex
	handlers map[string]methodHandler
	calls    map[string]int
	server   *httptest.Server
}

func newFakeConduit(t *testing.T) *fakeConduit {
	t.Helper()

	fake := &fakeConduit{
		handlers: make(map[string]methodHandler),
		calls:    make(map[string]int),
	}

	fake.server = httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeConduit) handle(writer http.ResponseWriter, request *http.Request) {
	method := strings.TrimPrefix(request.URL.Path, "/api/")

	if err := request.ParseForm(); err != nil {
		writer.WriteHeader(http.StatusBadRequest)

		return
	}

	f.mu.Lock()
	f.calls[method]++
	handler := f.handlers[method]
	f.mu.Unlock()

	envelope := map[string]any{
		"result":     nil,
		"error_code": nil,
		"error_info": nil,
	}

	if handler == nil {
		envelope["error_code"] = "ERR-CONDUIT-CALL"
		envelope["error_info"] = "Conduit method " + method + " does not exist."
	} else {
		result, errCode, errInfo := handler(request.PostForm)
		if errCode != "" {
			envelope["error_code"] = errCode
			envelope["error_info"] = errInfo
		} else {
			envelope["result"] = result
		}
	}

	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(envelope)
}

// on registers a handler for method.
func (f *fakeConduit) on(method string, handler methodHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[method] = handler
}

// result registers a fixed successful result for method.
func (f *fakeConduit) result(method string, result any) {
	f.on(method, func(url.Values) (any, string, string) {
		return result, "", ""
	})
}

// callCount returns how many times method was invoked.
func (f *fakeConduit) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[method]
}

// newTestClient creates a client pointed at the fake endpoint. overrides may
// adjust the config before construction.
func newTestClient(t *testing.T, fake *fakeConduit, overrides ...func(*conduit.Config)) *Client {
	t.Helper()

	config := &conduit.Config{
		APIURL:       fake.server.URL + "/api/",
		Token:        TestToken,
		RetryMax:     -1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}

	for _, override := range overrides {
		override(config)
	}

	client, err := New(context.Background(), config)
	require.NoError(t, err)

	return client
}

// taskResult builds a maniphest.search result entry.
func taskResult(id int, name, status string) map[string]any {
	return map[string]any{
		"id":   id,
		"type": "TASK",
		"phid": "PHID-TASK-" + name,
		"fields": map[string]any{
			"name":        name,
			"description": map[string]any{"raw": "description of " + name},
			"authorPHID":  "PHID-USER-author",
			"status":      map[string]any{"value": status, "name": status},
			"priority":    map[string]any{"value": 50, "name": "Normal"},
		},
	}
}

// searchEnvelope wraps items in the {data, cursor} frame of a *.search
// result.
func searchEnvelope(items []any, after string) map[string]any {
	return map[string]any{
		"data": items,
		"cursor": map[string]any{
			"limit": 100,
			"after": after,
		},
	}
}

// editEnvelope builds an *.edit result.
func editEnvelope(id int, phid string) map[string]any {
	return map[string]any{
		"object": map[string]any{"id": id, "phid": phid},
		"transactions": []any{
			map[string]any{"phid": "PHID-XACT-1"},
		},
	}
}
