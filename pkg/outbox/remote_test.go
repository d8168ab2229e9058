package outbox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barflowtrack/barflow/pkg/core"
)

func TestHTTPRemote_Apply(t *testing.T) {
	type seen struct {
		method, path, idempotency, auth, body string
	}
	var got seen

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = seen{
			method:      r.Method,
			path:        r.URL.Path,
			idempotency: r.Header.Get("Idempotency-Key"),
			auth:        r.Header.Get("Authorization"),
			body:        string(body),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	remote := NewHTTPRemote(server.URL, "secret")

	item := core.SyncItem{
		ID:             "i1",
		Table:          "sales",
		Op:             core.OpInsert,
		Data:           []byte(`{"id":"s1"}`),
		Timestamp:      time.Now(),
		IdempotencyKey: "idem-1",
	}
	require.NoError(t, remote.Apply(context.Background(), item))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/sales", got.path)
	assert.Equal(t, "idem-1", got.idempotency)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.JSONEq(t, `{"id":"s1"}`, got.body)
}

func TestHTTPRemote_MethodPerOperation(t *testing.T) {
	var methods []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
	}))
	defer server.Close()

	remote := NewHTTPRemote(server.URL, "")
	ctx := context.Background()

	for _, op := range []core.Operation{core.OpInsert, core.OpUpdate, core.OpDelete} {
		require.NoError(t, remote.Apply(ctx, core.SyncItem{Table: "staff", Op: op, Data: []byte(`{}`)}))
	}
	assert.Equal(t, []string{http.MethodPost, http.MethodPut, http.MethodDelete}, methods)

	err := remote.Apply(ctx, core.SyncItem{Table: "staff", Op: "upsert"})
	assert.ErrorContains(t, err, "unknown operation")
}

func TestHTTPRemote_Rejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conflict", http.StatusConflict)
	}))
	defer server.Close()

	remote := NewHTTPRemote(server.URL, "")
	err := remote.Apply(context.Background(), core.SyncItem{Table: "sales", Op: core.OpInsert, Data: []byte(`{}`)})
	assert.ErrorContains(t, err, "status 409")
}
