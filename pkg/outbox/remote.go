package outbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/barflowtrack/barflow/pkg/core"
)

// Remote applies one sync item against the backend. Implementations must
// tolerate at-least-once delivery; the item's IdempotencyKey identifies
// retried deliveries of the same mutation.
type Remote interface {
	Apply(ctx context.Context, item core.SyncItem) error
}

// RemoteFunc adapts a function to the Remote interface.
type RemoteFunc func(ctx context.Context, item core.SyncItem) error

// Apply implements Remote.
func (f RemoteFunc) Apply(ctx context.Context, item core.SyncItem) error {
	return f(ctx, item)
}

// HTTPRemote sends each mutation as a JSON request against a named resource:
// insert posts, update puts, delete deletes. Authentication is per-request via
// a bearer token.
type HTTPRemote struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewHTTPRemote creates a remote for the given base URL. The token may be
// empty for unauthenticated backends.
func NewHTTPRemote(baseURL, token string) *HTTPRemote {
	return &HTTPRemote{
		BaseURL: baseURL,
		Token:   token,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Apply implements Remote.
func (r *HTTPRemote) Apply(ctx context.Context, item core.SyncItem) error {
	var method string
	switch item.Op {
	case core.OpInsert:
		method = http.MethodPost
	case core.OpUpdate:
		method = http.MethodPut
	case core.OpDelete:
		method = http.MethodDelete
	default:
		return fmt.Errorf("unknown operation: %s", item.Op)
	}

	url := r.BaseURL + "/" + item.Table
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(item.Data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", item.IdempotencyKey)
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: remote rejected with status %d", method, url, resp.StatusCode)
	}
	return nil
}

var _ Remote = (*HTTPRemote)(nil)
