package anthropic

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
	providers.Register("anthropic", New)
}

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

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
		client: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) Manifest() ports.Manifest {
	return ports.Manifest{
		Name:        p.name,
		Version:     "1.0.0",
		Description: "Anthropic messages backend",
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

// --- Anthropic wire schemas ---

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type response struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Plugin) Execute(ctx context.Context, req *schema.ExecutionRequest) (*schema.ExecutionResponse, error) {
	body := request{
		Model:       req.Model,
		System:      req.SystemPrompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = defaultMaxTokens
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": apiVersion,
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/messages"

	var resp response
	if err := httpclient.SendRequest(ctx, p.client, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, p.wrapUpstream(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &schema.ExecutionResponse{
		Model:    req.Model,
		Provider: p.name,
		Content:  sb.String(),
		Metadata: map[string]any{"stop_reason": resp.StopReason},
		Usage: &schema.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
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
