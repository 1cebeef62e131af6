package providers

import (
	"errors"
	"strings"
)

// ErrUnknownProvider is returned by Registry.Resolve for identifiers that no
// registered adapter claims.
var ErrUnknownProvider = errors.New("unknown provider")

// RequestSpec is the fully-formed upstream request an adapter builds from a
// generic inbound call. The body is forwarded verbatim.
type RequestSpec struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Usage is the normalized token accounting extracted from a completed
// upstream response.
type Usage struct {
	Model            string `json:"model"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// Adapter translates a generic (secret, body, path) triple into a
// provider-specific upstream request and parses completed responses into
// normalized usage.
//
// TransformRequest must place the decrypted key in exactly one header and
// must not inspect or mutate it otherwise. ParseUsage must return zero
// token counts for provider error payloads so failed calls never register
// billable usage.
type Adapter interface {
	ID() string
	TransformRequest(decryptedKey string, body []byte, path []string) (*RequestSpec, error)
	ParseUsage(responseBody []byte) *Usage
}

// Registry resolves the provider segment of an inbound proxy URL to the
// adapter registered under that identifier. Registration happens at startup;
// lookups are read-only and safe for concurrent use.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[strings.ToLower(a.ID())] = a
}

func (r *Registry) Resolve(id string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(id)]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return a, nil
}

// IDs returns the registered provider identifiers.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}
