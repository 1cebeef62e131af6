package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformRequest(t *testing.T) {
	a := New(nil)

	body := []byte(`{"model":"gpt-4o","messages":[]}`)
	spec, err := a.TransformRequest("sk-secret", body, []string{"v1", "chat", "completions"})
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1/chat/completions", spec.URL)
	assert.Equal(t, "Bearer sk-secret", spec.Headers["Authorization"])
	assert.Equal(t, "application/json", spec.Headers["Content-Type"])
	assert.Equal(t, body, spec.Body)
}

func TestTransformRequestCustomBaseURL(t *testing.T) {
	a := New(&AdapterOptions{BaseURL: "http://localhost:9999/"})

	spec, err := a.TransformRequest("sk-secret", nil, []string{"v1", "embeddings"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1/embeddings", spec.URL)
}

func TestParseUsage(t *testing.T) {
	a := New(nil)

	u := a.ParseUsage([]byte(`{
		"model": "gpt-4o",
		"usage": {"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150}
	}`))

	assert.Equal(t, "gpt-4o", u.Model)
	assert.Equal(t, int64(100), u.PromptTokens)
	assert.Equal(t, int64(50), u.CompletionTokens)
}

func TestParseUsageErrorPayload(t *testing.T) {
	a := New(nil)

	// Failed calls must not register billable usage.
	u := a.ParseUsage([]byte(`{
		"model": "gpt-4o",
		"error": {"message": "You exceeded your current quota", "type": "insufficient_quota"}
	}`))

	assert.Equal(t, "gpt-4o", u.Model)
	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}

func TestParseUsageMalformedBody(t *testing.T) {
	a := New(nil)

	u := a.ParseUsage([]byte("data: not json"))
	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}

func TestParseUsageNoUsageBlock(t *testing.T) {
	a := New(nil)

	u := a.ParseUsage([]byte(`{"model": "gpt-4o"}`))
	assert.Equal(t, "gpt-4o", u.Model)
	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}
