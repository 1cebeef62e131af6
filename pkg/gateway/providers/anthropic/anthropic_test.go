package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformRequest(t *testing.T) {
	a := New(nil)

	body := []byte(`{"model":"claude-sonnet-4-20250514","max_tokens":1024}`)
	spec, err := a.TransformRequest("sk-ant-secret", body, []string{"v1", "messages"})
	require.NoError(t, err)

	assert.Equal(t, "https://api.anthropic.com/v1/messages", spec.URL)
	assert.Equal(t, "sk-ant-secret", spec.Headers["x-api-key"])
	assert.Equal(t, "2023-06-01", spec.Headers["anthropic-version"])
	assert.Equal(t, "application/json", spec.Headers["Content-Type"])
	assert.Empty(t, spec.Headers["Authorization"])
	assert.Equal(t, body, spec.Body)
}

func TestParseUsage(t *testing.T) {
	a := New(nil)

	u := a.ParseUsage([]byte(`{
		"model": "claude-sonnet-4-20250514",
		"type": "message",
		"usage": {"input_tokens": 200, "output_tokens": 75}
	}`))

	assert.Equal(t, "claude-sonnet-4-20250514", u.Model)
	assert.Equal(t, int64(200), u.PromptTokens)
	assert.Equal(t, int64(75), u.CompletionTokens)
}

func TestParseUsageErrorPayload(t *testing.T) {
	a := New(nil)

	u := a.ParseUsage([]byte(`{
		"type": "error",
		"error": {"type": "overloaded_error", "message": "Overloaded"}
	}`))

	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}

func TestParseUsageMalformedBody(t *testing.T) {
	a := New(nil)

	u := a.ParseUsage([]byte("event: message_start"))
	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}
