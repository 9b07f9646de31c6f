package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/light-merlin-dark/aia/internal/core/domain"
	"github.com/light-merlin-dark/aia/internal/core/ports"
	"github.com/light-merlin-dark/aia/internal/httpclient"
	"github.com/light-merlin-dark/aia/internal/providers"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"go.uber.org/zap"
)

func init() {
	providers.Register("openrouter", New)
}

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Plugin routes to OpenRouter's OpenAI-compatible aggregation API. Its
// catalog is open-ended, so it self-reports support for any
// vendor-qualified model name instead of relying on a configured list.
type Plugin struct {
	name   string
	cfg    domain.ServiceConfig
	client *http.Client
	logger *zap.Logger
	apiKey string
}

func New(name string, cfg domain.ServiceConfig) (ports.ProviderPlugin, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Plugin{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) Manifest() ports.Manifest {
	return ports.Manifest{
		Name:        p.name,
		Version:     "1.0.0",
		Description: "OpenRouter multi-vendor aggregation backend",
		Runtime: map[string]ports.RuntimeDependency{
			"api_key": {
				Required: true,
				Hint:     "set " + providers.EnvKey(p.name, "api_key") + " or services." + p.name + ".api_key",
			},
		},
	}
}

func (p *Plugin) OnLoad(ctx context.Context, lc ports.LoadContext) error {
	p.logger = lc.Logger
	p.apiKey = providers.Credential(p.name, lc.PluginConfig, "api_key")
	if p.apiKey == "" {
		return domain.DependencyError(fmt.Sprintf("service %q has no API key", p.name))
	}
	if u := lc.PluginConfig["base_url"]; u != "" {
		p.cfg.BaseURL = u
	}
	return nil
}

func (p *Plugin) OnUnload(ctx context.Context) error { return nil }

func (p *Plugin) Models(ctx context.Context) []string {
	return p.cfg.Models
}

// SupportsModel vouches for any vendor-qualified name. OpenRouter model
// IDs always carry a vendor prefix ("google/gemini-2.5-pro").
func (p *Plugin) SupportsModel(model string) bool {
	return strings.Contains(model, "/")
}

var _ ports.ModelSelfReporter = (*Plugin)(nil)

// --- OpenRouter wire schemas (OpenAI-compatible) ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (p *Plugin) Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error) {
	body := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	headers := map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"

	var resp chatResponse
	if err := httpclient.SendRequest(ctx, p.client, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, p.wrapUpstream(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices for model %s", p.name, req.Model)
	}

	out := &schema.ExecutionResponse{
		Model:    req.Model,
		Provider: p.name,
		Content:  resp.Choices[0].Message.Content,
		Metadata: map[string]any{"finish_reason": resp.Choices[0].FinishReason},
	}
	if resp.Usage != nil {
		out.Usage = &schema.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (p *Plugin) wrapUpstream(err error) error {
	var upstream *httpclient.UpstreamError
	if !errors.As(err, &upstream) {
		return err
	}
	var ae apiError
	if json.Unmarshal(upstream.Body, &ae) == nil && ae.Error.Message != "" {
		return fmt.Errorf("%s: %s: %w", p.name, ae.Error.Message, err)
	}
	return err
}
