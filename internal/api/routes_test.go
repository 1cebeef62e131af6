package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/apiguardian/apiguardian/internal/services"
	"github.com/apiguardian/apiguardian/pkg/gateway"
)

type countingDirectory struct {
	calls atomic.Int64
}

func (d *countingDirectory) FindByGatewayKey(context.Context, string) (*gateway.ProjectRecord, error) {
	d.calls.Add(1)
	return nil, gateway.ErrKeyNotFound
}

// Serves the real route table over an in-memory listener so requests travel
// through the full middleware chain, exactly as in production.
func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *http.Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func TestProxyRouteRejectsNonPOST(t *testing.T) {
	dir := &countingDirectory{}
	s := &Server{
		services: &services.Services{},
		gateway:  gateway.New(&gateway.Options{Directory: dir}),
	}

	client := newTestClient(t, s.initRoutes())

	req, err := http.NewRequest(http.MethodGet, "http://gateway/proxy/openai/v1/chat/completions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ag-whatever")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Allow"), "POST")
	assert.JSONEq(t, `{"error":"Method Not Allowed"}`, string(body))
	assert.Zero(t, dir.calls.Load(), "the forwarding pipeline must never run for a rejected method")
}
