package openai

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
)

type AdapterOptions struct {
	// https://api.openai.com
	BaseURL string
}

// Adapter forwards requests to the OpenAI API. The remaining path segments
// of the inbound call map directly onto OpenAI's own paths, e.g.
// v1/chat/completions.
type Adapter struct {
	opts *AdapterOptions
}

func New(opts *AdapterOptions) *Adapter {
	if opts == nil {
		opts = &AdapterOptions{}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com"
	}

	return &Adapter{opts: opts}
}

func (a *Adapter) ID() string {
	return "openai"
}

func (a *Adapter) TransformRequest(decryptedKey string, body []byte, path []string) (*providers.RequestSpec, error) {
	return &providers.RequestSpec{
		URL: strings.TrimSuffix(a.opts.BaseURL, "/") + "/" + strings.Join(path, "/"),
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + decryptedKey,
		},
		Body: body,
	}, nil
}

type usageResponse struct {
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// ParseUsage extracts model and token counts from a buffered OpenAI JSON
// response. Error payloads and unparseable bodies yield zero usage.
func (a *Adapter) ParseUsage(responseBody []byte) *providers.Usage {
	var resp usageResponse
	if err := sonic.Unmarshal(responseBody, &resp); err != nil {
		return &providers.Usage{}
	}

	if resp.Error != nil {
		return &providers.Usage{Model: resp.Model}
	}

	usage := &providers.Usage{Model: resp.Model}
	if resp.Usage != nil {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
	}

	return usage
}
