package gateway_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/node"
	"github.com/ValentinKolb/sdcs/lib/router"
	"github.com/ValentinKolb/sdcs/lib/store"
	"github.com/ValentinKolb/sdcs/lib/store/lstore"
	"github.com/ValentinKolb/sdcs/rpc/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails every operation, like a node whose peer is down
type failingStore struct{ err error }

func (f failingStore) Set(string, envelope.Envelope) error { return f.err }
func (f failingStore) Get(string) (envelope.Envelope, bool, error) {
	return envelope.Envelope{}, false, f.err
}
func (f failingStore) Remove(string) (bool, error) { return false, f.err }

func newGateway(t *testing.T) (*httptest.Server, *node.Service) {
	t.Helper()
	topology, err := router.NewTopology(1, 1)
	require.NoError(t, err)
	service := node.NewNodeService(topology, lstore.NewLocalStore(), nil)

	srv := httptest.NewServer(gateway.NewHandler(service, service.WritePrometheus))
	t.Cleanup(srv.Close)
	return srv, service
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestBanner(t *testing.T) {
	srv, _ := newGateway(t)

	status, body := do(t, http.MethodGet, srv.URL+"/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, gateway.Banner, body)
}

func TestSetGetRemove(t *testing.T) {
	srv, _ := newGateway(t)

	tests := []struct {
		name string
		body string
		key  string
		want string
	}{
		{"string", `{"a": "hello"}`, "a", `{"a":"hello"}`},
		{"int", `{"n": 42}`, "n", `{"n":42}`},
		{"negative int", `{"neg": -7}`, "neg", `{"neg":-7}`},
		{"float", `{"f": 1.5}`, "f", `{"f":1.5}`},
		{"float without fraction", `{"f1": 1.0}`, "f1", `{"f1":1.0}`},
		{"bool", `{"flag": true}`, "flag", `{"flag":true}`},
		{"false stays false", `{"off": false}`, "off", `{"off":false}`},
		{"list", `{"lst": [1, "x", true]}`, "lst", `{"lst":[1,"x",true]}`},
		{"object", `{"obj": {"b": 2, "a": 1}}`, "obj", `{"obj":{"a":1,"b":2}}`},
		{"empty string", `{"empty": ""}`, "empty", `{"empty":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, srv.URL+"/", tt.body)
			require.Equal(t, http.StatusOK, status, body)
			assert.Empty(t, body)

			status, body = do(t, http.MethodGet, srv.URL+"/"+tt.key, "")
			require.Equal(t, http.StatusOK, status)
			assert.JSONEq(t, tt.want, body)
			assert.Equal(t, tt.want+"\n", body, "number formatting must be kept")
		})
	}

	status, body := do(t, http.MethodDelete, srv.URL+"/a", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1\n", body)

	status, body = do(t, http.MethodDelete, srv.URL+"/a", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0\n", body)

	status, _ = do(t, http.MethodGet, srv.URL+"/a", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOverwrite(t *testing.T) {
	srv, _ := newGateway(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/", `{"k": 1}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, http.MethodPost, srv.URL+"/", `{"k": "one"}`)
	require.Equal(t, http.StatusOK, status)

	_, body := do(t, http.MethodGet, srv.URL+"/k", "")
	assert.JSONEq(t, `{"k":"one"}`, body)
}

func TestEscapedKey(t *testing.T) {
	srv, _ := newGateway(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/", `{"a b/c": 1}`)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodGet, srv.URL+"/a%20b%2Fc", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"a b/c":1}`, body)
}

func TestBadRequests(t *testing.T) {
	srv, _ := newGateway(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"no JSON", "hello"},
		{"array", `[1, 2]`},
		{"scalar", `42`},
		{"null body", `null`},
		{"no pairs", `{}`},
		{"two pairs", `{"a": 1, "b": 2}`},
		{"null value", `{"a": null}`},
		{"int32 overflow", `{"a": 2147483648}`},
		{"trailing data", `{"a": 1} {"b": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := do(t, http.MethodPost, srv.URL+"/", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}

	// nothing was stored
	status, _ := do(t, http.MethodGet, srv.URL+"/a", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStoreFailures(t *testing.T) {
	err := errors.New("node 2 unreachable")
	srv := httptest.NewServer(gateway.NewHandler(failingStore{err: err}, nil))
	defer srv.Close()

	status, body := do(t, http.MethodPost, srv.URL+"/", `{"a": 1}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "node 2 unreachable")

	status, _ = do(t, http.MethodGet, srv.URL+"/a", "")
	assert.Equal(t, http.StatusInternalServerError, status)

	status, _ = do(t, http.MethodDelete, srv.URL+"/a", "")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestInvalidValueFromStore(t *testing.T) {
	srv := httptest.NewServer(gateway.NewHandler(failingStore{
		err: store.NewError(store.RetCInvalidValue, "rejected"),
	}, nil))
	defer srv.Close()

	status, _ := do(t, http.MethodPost, srv.URL+"/", `{"a": 1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newGateway(t)

	status, _ := do(t, http.MethodPost, srv.URL+"/", `{"a": 1}`)
	require.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `sdcs_requests_total{op="set",route="local"} 1`)
	assert.Contains(t, body, "sdcs_local_keys 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newGateway(t)

	status, _ := do(t, http.MethodPut, srv.URL+"/a", `{"a": 1}`)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}
