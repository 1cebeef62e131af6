package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
	"github.com/apiguardian/apiguardian/pkg/gateway/providers/openai"
	"github.com/apiguardian/apiguardian/pkg/gateway/ratelimit"
	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

type recordedUsage struct {
	projectID uuid.UUID
	provider  string
	usage     *providers.Usage
}

type fakeUsageRecorder struct {
	ch chan recordedUsage
}

func newFakeUsageRecorder() *fakeUsageRecorder {
	return &fakeUsageRecorder{ch: make(chan recordedUsage, 1)}
}

func (r *fakeUsageRecorder) Record(_ context.Context, projectID uuid.UUID, provider string, usage *providers.Usage) {
	r.ch <- recordedUsage{projectID: projectID, provider: provider, usage: usage}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string, ratelimit.Limit) (bool, error) {
	return false, nil
}

func newTestGateway(t *testing.T, upstreamURL string, opts *Options) (*Gateway, *ProjectRecord) {
	t.Helper()

	cipher := secretcipher.New("master-key")
	dir, record := newTestDirectory(t, cipher, "sk-real-provider-key")

	opts.Directory = dir
	opts.Cipher = cipher
	opts.Registry = providers.NewRegistry(openai.New(&openai.AdapterOptions{BaseURL: upstreamURL}))

	return New(opts), record
}

func TestHandleForwardsAndRelays(t *testing.T) {
	var sawAuth, sawPath, sawMethod string
	var gotBody []byte

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		sawPath = r.URL.Path
		sawMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req_123")
		_, _ = w.Write([]byte(`{"model":"gpt-4o","usage":{"prompt_tokens":12,"completion_tokens":34}}`))
	}))
	defer upstream.Close()

	recorder := newFakeUsageRecorder()
	gw, record := newTestGateway(t, upstream.URL, &Options{Usage: recorder})

	up, rej := gw.Handle(context.Background(), &InboundRequest{
		Authorization: "Bearer ag-valid",
		Provider:      "openai",
		Path:          []string{"v1", "chat", "completions"},
		Body:          []byte(`{"model":"gpt-4o"}`),
	})
	require.Nil(t, rej)

	// Upstream saw the decrypted provider key, never the gateway key.
	assert.Equal(t, "Bearer sk-real-provider-key", sawAuth)
	assert.Equal(t, "/v1/chat/completions", sawPath)
	assert.Equal(t, http.MethodPost, sawMethod)
	assert.Equal(t, `{"model":"gpt-4o"}`, string(gotBody))

	assert.Equal(t, http.StatusOK, up.StatusCode)
	assert.Equal(t, "req_123", up.Header.Get("X-Request-Id"))

	body, err := io.ReadAll(up.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"gpt-4o","usage":{"prompt_tokens":12,"completion_tokens":34}}`, string(body))

	up.Close()

	select {
	case rec := <-recorder.ch:
		assert.Equal(t, record.ID, rec.projectID)
		assert.Equal(t, "openai", rec.provider)
		assert.Equal(t, "gpt-4o", rec.usage.Model)
		assert.Equal(t, int64(12), rec.usage.PromptTokens)
		assert.Equal(t, int64(34), rec.usage.CompletionTokens)
	case <-time.After(2 * time.Second):
		t.Fatal("usage was never recorded")
	}
}

func TestHandleRelaysUpstreamErrorsVerbatim(t *testing.T) {
	errorBody := `{"error":{"message":"Rate limit reached for gpt-4o","type":"tokens"}}`

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(errorBody))
	}))
	defer upstream.Close()

	gw, _ := newTestGateway(t, upstream.URL, &Options{})

	up, rej := gw.Handle(context.Background(), &InboundRequest{
		Authorization: "Bearer ag-valid",
		Provider:      "openai",
		Path:          []string{"v1", "chat", "completions"},
		Body:          []byte(`{}`),
	})
	require.Nil(t, rej)
	defer up.Close()

	assert.Equal(t, http.StatusTooManyRequests, up.StatusCode)

	body, err := io.ReadAll(up.Body)
	require.NoError(t, err)
	assert.Equal(t, errorBody, string(body))
}

func TestHandleRejectsBeforeUpstream(t *testing.T) {
	var calls atomic.Int64

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	gw, _ := newTestGateway(t, upstream.URL, &Options{})

	tests := []struct {
		name   string
		in     *InboundRequest
		reason RejectReason
		status int
	}{
		{
			name:   "missing key",
			in:     &InboundRequest{Provider: "openai", Path: []string{"v1", "embeddings"}},
			reason: ReasonMissingOrInvalidKey,
			status: http.StatusUnauthorized,
		},
		{
			name:   "unknown key",
			in:     &InboundRequest{Authorization: "Bearer ag-nope", Provider: "openai"},
			reason: ReasonKeyNotFound,
			status: http.StatusUnauthorized,
		},
		{
			name:   "unknown provider",
			in:     &InboundRequest{Authorization: "Bearer ag-valid", Provider: "grok"},
			reason: ReasonUnknownProvider,
			status: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			up, rej := gw.Handle(context.Background(), tc.in)
			require.NotNil(t, rej)
			assert.Nil(t, up)
			assert.Equal(t, tc.reason, rej.Reason)
			assert.Equal(t, tc.status, rej.Status)
		})
	}

	assert.Equal(t, int64(0), calls.Load(), "rejected requests must never reach the upstream")
}

func TestHandleRateLimited(t *testing.T) {
	var calls atomic.Int64

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	gw, _ := newTestGateway(t, upstream.URL, &Options{RateLimiter: denyAllLimiter{}})

	up, rej := gw.Handle(context.Background(), &InboundRequest{
		Authorization: "Bearer ag-valid",
		Provider:      "openai",
		Path:          []string{"v1", "chat", "completions"},
	})
	require.NotNil(t, rej)
	assert.Nil(t, up)
	assert.Equal(t, ReasonRateLimited, rej.Reason)
	assert.Equal(t, http.StatusTooManyRequests, rej.Status)
	assert.Equal(t, int64(0), calls.Load())
}

func TestHandleUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // nothing listening anymore

	gw, _ := newTestGateway(t, upstream.URL, &Options{})

	up, rej := gw.Handle(context.Background(), &InboundRequest{
		Authorization: "Bearer ag-valid",
		Provider:      "openai",
		Path:          []string{"v1", "chat", "completions"},
	})
	require.NotNil(t, rej)
	assert.Nil(t, up)
	assert.Equal(t, ReasonUpstreamUnreachable, rej.Reason)
	assert.Equal(t, http.StatusInternalServerError, rej.Status)
	// The caller sees a generic message, not a dial error.
	assert.Equal(t, "Internal Server Error", rej.Message)
}

func TestHandleSkipsUsageForStreamingResponses(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"choices\":[]}\n\n"))
	}))
	defer upstream.Close()

	recorder := newFakeUsageRecorder()
	gw, _ := newTestGateway(t, upstream.URL, &Options{Usage: recorder})

	up, rej := gw.Handle(context.Background(), &InboundRequest{
		Authorization: "Bearer ag-valid",
		Provider:      "openai",
		Path:          []string{"v1", "chat", "completions"},
	})
	require.Nil(t, rej)

	_, err := io.ReadAll(up.Body)
	require.NoError(t, err)
	up.Close()

	select {
	case <-recorder.ch:
		t.Fatal("streamed responses must not produce usage records")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCloseCancelsUpstream(t *testing.T) {
	upstreamCancelled := make(chan struct{})

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
			close(upstreamCancelled)
		case <-time.After(5 * time.Second):
		}
	}))
	defer upstream.Close()

	gw, _ := newTestGateway(t, upstream.URL, &Options{})

	up, rej := gw.Handle(context.Background(), &InboundRequest{
		Authorization: "Bearer ag-valid",
		Provider:      "openai",
		Path:          []string{"v1", "chat", "completions"},
	})
	require.Nil(t, rej)

	// The caller walks away without draining the body, as a proxy does when
	// the downstream connection drops mid-stream.
	up.Close()

	select {
	case <-upstreamCancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("closing the response did not cancel the upstream request")
	}
}

func TestCappedBufferTruncation(t *testing.T) {
	buf := &cappedBuffer{cap: 8}

	n, err := buf.Write([]byte("12345"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, buf.truncated)

	// Write reports full length so the TeeReader never stalls the relay.
	n, err = buf.Write([]byte("67890"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.True(t, buf.truncated)
	assert.Equal(t, "12345678", string(buf.Bytes()))
}
