package anthropic

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/apiguardian/apiguardian/pkg/gateway/providers"
)

const defaultAPIVersion = "2023-06-01"

type AdapterOptions struct {
	// https://api.anthropic.com
	BaseURL string

	// Value for the anthropic-version header
	APIVersion string
}

// Adapter forwards requests to the Anthropic API. Anthropic authenticates
// with an x-api-key header instead of a bearer token and reports usage as
// input_tokens/output_tokens.
type Adapter struct {
	opts *AdapterOptions
}

func New(opts *AdapterOptions) *Adapter {
	if opts == nil {
		opts = &AdapterOptions{}
	}

	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.anthropic.com"
	}

	if opts.APIVersion == "" {
		opts.APIVersion = defaultAPIVersion
	}

	return &Adapter{opts: opts}
}

func (a *Adapter) ID() string {
	return "anthropic"
}

func (a *Adapter) TransformRequest(decryptedKey string, body []byte, path []string) (*providers.RequestSpec, error) {
	return &providers.RequestSpec{
		URL: strings.TrimSuffix(a.opts.BaseURL, "/") + "/" + strings.Join(path, "/"),
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         decryptedKey,
			"anthropic-version": a.opts.APIVersion,
		},
		Body: body,
	}, nil
}

type usageResponse struct {
	Model string `json:"model"`
	Type  string `json:"type"`
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// ParseUsage extracts model and token counts from a buffered Anthropic JSON
// response. Error payloads (type == "error") and unparseable bodies yield
// zero usage.
func (a *Adapter) ParseUsage(responseBody []byte) *providers.Usage {
	var resp usageResponse
	if err := sonic.Unmarshal(responseBody, &resp); err != nil {
		return &providers.Usage{}
	}

	if resp.Type == "error" {
		return &providers.Usage{Model: resp.Model}
	}

	usage := &providers.Usage{Model: resp.Model}
	if resp.Usage != nil {
		usage.PromptTokens = resp.Usage.InputTokens
		usage.CompletionTokens = resp.Usage.OutputTokens
	}

	return usage
}
