// Package gateway implements the credential-proxying pipeline: it
// authenticates an opaque gateway key, recovers the real provider secret
// from encrypted storage, rewrites the request for the target provider and
// relays the provider's response back unmodified.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
	"github.com/apiguardian/apiguardian/pkg/gateway/ratelimit"
	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

var tracer = otel.Tracer("Gateway")

const (
	defaultUpstreamTimeout = 5 * time.Minute

	// Usage parsing reads from a capped copy of the upstream body; responses
	// larger than this are relayed fine but produce no usage record.
	usageBufferCap = 1 << 20
)

type Options struct {
	Directory Directory
	Cipher    *secretcipher.Cipher
	Registry  *providers.Registry

	// Optional: per-gateway-key rate limiting. Nil disables it.
	RateLimiter ratelimit.Storage

	// Optional: receives usage parsed from buffered JSON responses.
	Usage UsageRecorder

	// Deadline for each upstream call. Zero means defaultUpstreamTimeout.
	UpstreamTimeout time.Duration

	// Transport overrides the upstream HTTP client, used by tests.
	Transport *http.Client
}

// Gateway orchestrates authenticate → resolve → transform → forward → relay.
// It holds no cross-request mutable state and is safe for concurrent use.
type Gateway struct {
	auth      *Authenticator
	registry  *providers.Registry
	limiter   ratelimit.Storage
	usage     UsageRecorder
	timeout   time.Duration
	transport *http.Client
}

func New(opts *Options) *Gateway {
	timeout := opts.UpstreamTimeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultClient
	}

	return &Gateway{
		auth:      NewAuthenticator(opts.Directory, opts.Cipher),
		registry:  opts.Registry,
		limiter:   opts.RateLimiter,
		usage:     opts.Usage,
		timeout:   timeout,
		transport: transport,
	}
}

// InboundRequest is the transport-agnostic description of a proxy call.
// Provider is the path segment after the proxy mount point; Path holds the
// segments after it, i.e. the provider's own API path.
type InboundRequest struct {
	Authorization string
	Provider      string
	Path          []string
	Body          []byte
}

// UpstreamResponse is the relayed upstream result. The caller must stream
// Body to the client and call Close when done; Close releases the upstream
// connection, cancels the deadline and kicks off asynchronous usage
// accounting.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.Reader

	upstream io.ReadCloser
	cancel   context.CancelFunc
	record   func()
}

func (u *UpstreamResponse) Close() {
	_ = u.upstream.Close()
	u.cancel()
	if u.record != nil {
		u.record()
	}
}

// Handle runs the full pipeline. It returns either the upstream response to
// relay or a structured rejection; internal failures are folded into a
// rejection with a generic message so nothing about the gateway's internals
// leaks to the caller.
func (g *Gateway) Handle(ctx context.Context, in *InboundRequest) (*UpstreamResponse, *Rejection) {
	ctx, span := tracer.Start(ctx, "Gateway.Handle")
	defer span.End()

	span.SetAttributes(attribute.String("provider", in.Provider))

	// Authentication runs before anything else; an unauthenticated request
	// never triggers an upstream call.
	authCtx, rej := g.auth.Authenticate(ctx, in.Authorization)
	if rej != nil {
		span.SetStatus(codes.Error, rej.Error())
		return nil, rej
	}

	if rej := g.checkRateLimits(ctx, authCtx); rej != nil {
		span.SetStatus(codes.Error, rej.Error())
		return nil, rej
	}

	adapter, err := g.registry.Resolve(in.Provider)
	if err != nil {
		// The route exists, only the provider choice is invalid, so this is
		// a 400 rather than a 404.
		return nil, reject(ReasonUnknownProvider, http.StatusBadRequest,
			"Invalid AI provider specified in URL.", err)
	}

	spec, err := adapter.TransformRequest(authCtx.Secret, in.Body, in.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, reject(ReasonInternal, http.StatusInternalServerError,
			"Internal Server Error", err)
	}

	upCtx, cancel := context.WithTimeout(ctx, g.timeout)

	req, err := http.NewRequestWithContext(upCtx, http.MethodPost, spec.URL, bytes.NewReader(spec.Body))
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, reject(ReasonInternal, http.StatusInternalServerError,
			"Internal Server Error", err)
	}

	for name, value := range spec.Headers {
		req.Header.Set(name, value)
	}

	resp, err := g.transport.Do(req)
	if err != nil {
		cancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, reject(ReasonUpstreamUnreachable, http.StatusInternalServerError,
			"Internal Server Error", err)
	}

	span.SetAttributes(attribute.Int("upstream.status", resp.StatusCode))

	out := &UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		upstream:   resp.Body,
		cancel:     cancel,
	}

	// Tee buffered JSON bodies for usage accounting. Streamed (SSE) bodies
	// are relayed without accounting; see ParseUsage contract.
	if g.usage != nil && isBufferedJSON(resp.Header.Get("Content-Type")) {
		buf := &cappedBuffer{cap: usageBufferCap}
		out.Body = io.TeeReader(resp.Body, buf)

		projectID := authCtx.ProjectID
		providerID := adapter.ID()
		out.record = func() {
			if buf.truncated {
				return
			}
			body := buf.Bytes()
			go g.usage.Record(context.Background(), projectID, providerID, adapter.ParseUsage(body))
		}
	}

	return out, nil
}

func (g *Gateway) checkRateLimits(ctx context.Context, authCtx *AuthContext) *Rejection {
	if g.limiter == nil || len(authCtx.rateLimits) == 0 {
		return nil
	}

	for _, rl := range authCtx.rateLimits {
		allowed, err := g.limiter.Allow(ctx, authCtx.ProjectID.String(), ratelimit.Limit{
			Unit:  rl.Unit,
			Limit: rl.Limit,
		})
		if err != nil {
			return reject(ReasonInternal, http.StatusInternalServerError,
				"Internal Server Error", err)
		}

		if !allowed {
			return reject(ReasonRateLimited, http.StatusTooManyRequests,
				"Rate limit exceeded for this gateway key.", nil)
		}
	}

	return nil
}

func isBufferedJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// cappedBuffer collects up to cap bytes and silently drops the rest. A
// truncated copy is never parsed so oversized responses cannot produce
// bogus usage rows.
type cappedBuffer struct {
	buf       bytes.Buffer
	cap       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.buf.Len()+n > b.cap {
		b.truncated = true
		p = p[:max(0, b.cap-b.buf.Len())]
	}
	b.buf.Write(p)
	return n, nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}
