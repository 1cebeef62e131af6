package controllers

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/apiguardian/apiguardian/pkg/gateway"
)

var tracer = otel.Tracer("Controllers")

// Response headers that describe the connection rather than the payload.
// Everything else is relayed to the caller untouched.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
}

func RegisterProxyRoutes(r *router.Router, gw *gateway.Gateway) {
	r.POST("/proxy/{provider}/{path:*}", func(reqCtx *fasthttp.RequestCtx) {
		ctx, span := tracer.Start(requestContext(reqCtx), "Controller.Proxy")

		provider, err := pathParam(reqCtx, "provider")
		if err != nil {
			writeProxyError(reqCtx, fasthttp.StatusBadRequest, "Invalid AI provider specified in URL.")
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return
		}

		slug, _ := pathParam(reqCtx, "path")
		slug = strings.Trim(slug, "/")

		var path []string
		if slug != "" {
			path = strings.Split(slug, "/")
		}

		// fasthttp reuses request buffers once the stream writer takes over,
		// so the body is copied before handing it to the pipeline.
		body := make([]byte, len(reqCtx.PostBody()))
		copy(body, reqCtx.PostBody())

		up, rej := gw.Handle(ctx, &gateway.InboundRequest{
			Authorization: string(reqCtx.Request.Header.Peek("Authorization")),
			Provider:      provider,
			Path:          path,
			Body:          body,
		})
		if rej != nil {
			writeProxyError(reqCtx, rej.Status, rej.Message)
			span.SetStatus(codes.Error, rej.Error())
			span.End()
			return
		}

		reqCtx.SetStatusCode(up.StatusCode)
		for name, values := range up.Header {
			if _, skip := hopByHopHeaders[name]; skip {
				continue
			}
			for _, v := range values {
				reqCtx.Response.Header.Add(name, v)
			}
		}

		reqCtx.SetBodyStreamWriter(func(w *bufio.Writer) {
			defer span.End()
			defer up.Close()

			buf := make([]byte, 32*1024)
			for {
				n, err := up.Body.Read(buf)
				if n > 0 {
					if _, werr := w.Write(buf[:n]); werr != nil {
						slog.Warn("Client disconnected during relay", slog.Any("error", werr))
						return
					}
					if ferr := w.Flush(); ferr != nil {
						slog.Warn("Error flushing relay buffer", slog.Any("error", ferr))
						return
					}
				}
				if err != nil {
					if err != io.EOF {
						slog.Warn("Upstream read failed mid-relay", slog.Any("error", err))
						span.RecordError(err)
					}
					return
				}
			}
		})
	})
}

// writeProxyError writes the proxy's flat error shape. Proxy callers are
// provider SDKs expecting provider-style bodies, not the management API
// envelope.
func writeProxyError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("content-type", "application/json")

	body, err := sonic.Marshal(map[string]string{"error": message})
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(body)
}
