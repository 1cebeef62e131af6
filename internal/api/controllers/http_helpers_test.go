package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

type ctxKey struct{}

func TestRequestContextUsesTraceContext(t *testing.T) {
	traceCtx := context.WithValue(context.Background(), ctxKey{}, "span")

	reqCtx := &fasthttp.RequestCtx{}
	reqCtx.SetUserValue("traceCtx", traceCtx)

	got := requestContext(reqCtx)
	assert.Equal(t, "span", got.Value(ctxKey{}))
}

func TestRequestContextFallsBackToBackground(t *testing.T) {
	assert.Equal(t, context.Background(), requestContext(&fasthttp.RequestCtx{}))
}
