package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	id string
}

func (a *stubAdapter) ID() string { return a.id }

func (a *stubAdapter) TransformRequest(_ string, body []byte, _ []string) (*RequestSpec, error) {
	return &RequestSpec{Body: body}, nil
}

func (a *stubAdapter) ParseUsage([]byte) *Usage { return &Usage{} }

func TestRegistryResolve(t *testing.T) {
	openai := &stubAdapter{id: "openai"}
	anthropic := &stubAdapter{id: "anthropic"}
	r := NewRegistry(openai, anthropic)

	got, err := r.Resolve("openai")
	require.NoError(t, err)
	assert.Same(t, openai, got)

	// Identifiers are case-insensitive
	got, err = r.Resolve("Anthropic")
	require.NoError(t, err)
	assert.Same(t, anthropic, got)
}

func TestRegistryResolveUnknown(t *testing.T) {
	r := NewRegistry(&stubAdapter{id: "openai"})

	got, err := r.Resolve("gemini")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry(&stubAdapter{id: "openai"}, &stubAdapter{id: "anthropic"})
	assert.ElementsMatch(t, []string{"openai", "anthropic"}, r.IDs())
}
